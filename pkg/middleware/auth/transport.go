package auth

import (
	"fmt"
	"net/http"

	"github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
)

// Transport attaches credentials issued by p to every request before
// handing it to next. The caller's request is cloned, never modified.
func Transport(next http.RoundTripper, p CredentialsProvider) http.RoundTripper {
	if p == nil {
		return next
	}
	return &credsTransport{next: next, p: p}
}

type credsTransport struct {
	next http.RoundTripper
	p    CredentialsProvider
}

func (t *credsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	creds, err := t.p.Issue(req.Context(), req)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("downstream credentials: %w", err)
	}
	if creds.empty() {
		return t.next.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	if creds.HeaderName != "" && creds.HeaderValue != "" {
		out.Header.Set(creds.HeaderName, creds.HeaderValue)
	}
	for k, v := range creds.Extra {
		out.Header.Set(k, v)
	}
	res, err := t.next.RoundTrip(out)
	if res != nil {
		res.Request = req
	}
	return res, err
}

func (t *credsTransport) CloseIdleConnections() {
	httpx.CloseIdleConnections(t.next)
}
