package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignedJWTProvider mints a short-lived HS256 token per request.
type SignedJWTProvider struct {
	Secret     []byte
	Issuer     string
	Audience   string
	Subject    string
	TTL        time.Duration // default: 5m
	HeaderName string        // default: "Authorization"

	now func() time.Time
}

func (p SignedJWTProvider) Issue(context.Context, *http.Request) (DownstreamCredentials, error) {
	if len(p.Secret) == 0 {
		return DownstreamCredentials{}, errors.New("signed-jwt: secret not configured")
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	iat := now()
	claims := jwt.RegisteredClaims{
		Issuer:    p.Issuer,
		Subject:   p.Subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	if p.Audience != "" {
		claims.Audience = jwt.ClaimStrings{p.Audience}
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.Secret)
	if err != nil {
		return DownstreamCredentials{}, fmt.Errorf("signed-jwt: %w", err)
	}
	h := p.HeaderName
	if h == "" {
		h = "Authorization"
	}
	return DownstreamCredentials{HeaderName: h, HeaderValue: bearer(raw)}, nil
}

// VerifyHS256 validates a token minted by SignedJWTProvider. Empty issuer or
// audience skip that check. In-process backends use it to assert what the
// client sent.
func VerifyHS256(raw string, secret []byte, issuer, audience string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	var claims jwt.RegisteredClaims
	tok, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}
