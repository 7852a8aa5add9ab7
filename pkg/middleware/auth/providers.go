package auth

import (
	"context"
	"net/http"
	"os"
	"strings"
)

type NoAuthProvider struct{}

func (NoAuthProvider) Issue(context.Context, *http.Request) (DownstreamCredentials, error) {
	return DownstreamCredentials{}, nil
}

// ContextProvider forwards credentials the caller attached to the request
// context, e.g. a per-tenant token in multi-tenant tests.
type ContextProvider struct{}

func (ContextProvider) Issue(ctx context.Context, _ *http.Request) (DownstreamCredentials, error) {
	c, _ := CredentialsFrom(ctx)
	return c, nil
}

type StaticBearerProvider struct {
	Token      string // takes precedence over EnvVar
	HeaderName string // default: "Authorization"
	EnvVar     string // default: DOWNSTREAM_STATIC_BEARER
}

func (p StaticBearerProvider) Issue(context.Context, *http.Request) (DownstreamCredentials, error) {
	h := p.HeaderName
	if h == "" {
		h = "Authorization"
	}
	val := strings.TrimSpace(p.Token)
	if val == "" {
		env := p.EnvVar
		if env == "" {
			env = "DOWNSTREAM_STATIC_BEARER"
		}
		val = strings.TrimSpace(os.Getenv(env))
	}
	if val == "" {
		return DownstreamCredentials{}, nil
	}
	return DownstreamCredentials{HeaderName: h, HeaderValue: bearer(val)}, nil
}

func bearer(v string) string {
	if strings.HasPrefix(v, "Bearer ") {
		return v
	}
	return "Bearer " + v
}
