package logger

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-route/pkg/origin"
	"github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
	"go.uber.org/zap"
)

type Middleware struct {
	l *zap.Logger
}

// NewMiddleware logs to l; a nil l uses the shared outbound access log.
func NewMiddleware(l *zap.Logger) *Middleware { return &Middleware{l: l} }

func (m *Middleware) logger() *zap.Logger {
	if m != nil && m.l != nil {
		return m.l
	}
	return getAccessLogger()
}

// Transport logs one line per outbound exchange after next returns.
func (m *Middleware) Transport(next http.RoundTripper) http.RoundTripper {
	return &accessTransport{m: m, next: next}
}

type accessTransport struct {
	m    *Middleware
	next http.RoundTripper
}

func (t *accessTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	key := originKey(r)

	var body []byte
	if shouldLogBody(r, key) {
		b, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
		// Restore on a copy so the caller's request stays untouched.
		r = r.Clone(r.Context())
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	start := time.Now()
	res, err := t.next.RoundTrip(r)
	lat := time.Since(start)

	status := 0
	respSize := int64(-1)
	if res != nil {
		status = res.StatusCode
		respSize = res.ContentLength
	}

	log := t.m.logger().With(
		zap.String("dateTime", start.UTC().Format(time.RFC1123)),
		zap.String("httpScheme", r.URL.Scheme),
		zap.String("httpMethod", r.Method),
		zap.String("origin", key),
		zap.String("uri", r.URL.Path),
		zap.Duration("lat", lat),
		zap.Int64("responseSize", respSize),
		zap.Int("status", status),
	)
	switch {
	case err != nil:
		log.Warn("", zap.Error(err))
	case body != nil:
		log.Info("", zap.ByteString("requestData", body))
	default:
		log.Info("")
	}
	return res, err
}

func (t *accessTransport) CloseIdleConnections() {
	httpx.CloseIdleConnections(t.next)
}

func originKey(r *http.Request) string {
	if o, err := origin.FromURL(r.URL); err == nil {
		return o.Key()
	}
	if r.URL != nil {
		return strings.ToLower(r.URL.Host)
	}
	return ""
}
