package httpx

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// InprocRemoteAddr is the RemoteAddr in-process backends see.
const InprocRemoteAddr = "192.0.2.1:1234"

type handlerTransport struct {
	h http.Handler
}

// NewHandlerTransport serves requests with h directly, without sockets.
// The handler runs on the caller's goroutine and sees a server-side view of
// the request; its output is buffered and returned as the response.
func NewHandlerTransport(h http.Handler) http.RoundTripper {
	return &handlerTransport{h: h}
}

func (t *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	sreq := req.Clone(ctx)
	if req.Body != nil {
		// Buffer so the handler can't outlive the caller's body.
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("inproc: read body: %w", err)
		}
		sreq.Body = io.NopCloser(bytes.NewReader(b))
		sreq.ContentLength = int64(len(b))
	} else {
		sreq.Body = http.NoBody
	}
	sreq.RequestURI = req.URL.RequestURI()
	sreq.RemoteAddr = InprocRemoteAddr
	if sreq.Host == "" {
		sreq.Host = req.URL.Host
	}
	if req.URL.Scheme == "https" {
		sreq.TLS = &tls.ConnectionState{HandshakeComplete: true, ServerName: req.URL.Hostname()}
	}
	sreq.URL.Scheme, sreq.URL.Host = "", ""
	if sreq.Proto == "" {
		sreq.Proto, sreq.ProtoMajor, sreq.ProtoMinor = "HTTP/1.1", 1, 1
	}

	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, sreq)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := rec.Result()
	res.Request = req
	res.Proto, res.ProtoMajor, res.ProtoMinor = sreq.Proto, sreq.ProtoMajor, sreq.ProtoMinor
	if res.ContentLength < 0 {
		res.ContentLength = int64(rec.Body.Len())
	}
	return res, nil
}

// CloseIdleConnections closes idle connections of rt when it supports it.
func CloseIdleConnections(rt http.RoundTripper) {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := rt.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
