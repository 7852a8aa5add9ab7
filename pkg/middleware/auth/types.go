package auth

import (
	"context"
	"net/http"
)

// DownstreamCredentials is what a provider wants attached to an outbound
// request.
type DownstreamCredentials struct {
	HeaderName  string
	HeaderValue string
	Extra       map[string]string
}

func (c DownstreamCredentials) empty() bool {
	return (c.HeaderName == "" || c.HeaderValue == "") && len(c.Extra) == 0
}

type CredentialsProvider interface {
	Issue(ctx context.Context, r *http.Request) (DownstreamCredentials, error)
}

type contextKey struct{ name string }

var credsCtxKey = &contextKey{"downstream-credentials"}

// WithCredentials attaches per-request credentials for ContextProvider.
func WithCredentials(ctx context.Context, c DownstreamCredentials) context.Context {
	return context.WithValue(ctx, credsCtxKey, c)
}

// CredentialsFrom returns credentials attached with WithCredentials.
func CredentialsFrom(ctx context.Context) (DownstreamCredentials, bool) {
	c, ok := ctx.Value(credsCtxKey).(DownstreamCredentials)
	return c, ok
}
