package httpx_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-route/pkg/codec"
	"github.com/joeydtaylor/steeze-route/pkg/routing"
	"github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func echoApp() http.Handler {
	r := httpx.NewChi()
	r.Get("/hello/{name}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Host", req.Host)
		w.Header().Set("X-Remote", req.RemoteAddr)
		w.Header().Set("X-Request-URI", req.RequestURI)
		if req.TLS != nil {
			w.Header().Set("X-TLS", "1")
		}
		_, _ = io.WriteString(w, "hello "+strings.TrimPrefix(req.URL.Path, "/hello/"))
	}))
	r.Post("/echo", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	}))
	r.Get("/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	return r.Mux()
}

func TestHandlerTransportServesInProcess(t *testing.T) {
	require := require.New(t)

	client := &http.Client{Transport: httpx.NewHandlerTransport(echoApp())}
	resp, err := client.Get("https://api.internal/hello/world?x=1")
	require.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("hello world", string(body))
	require.Equal("api.internal", resp.Header.Get("X-Host"))
	require.Equal(httpx.InprocRemoteAddr, resp.Header.Get("X-Remote"))
	require.Equal("/hello/world?x=1", resp.Header.Get("X-Request-URI"))
	require.Equal("1", resp.Header.Get("X-TLS"))
	require.Equal(int64(len("hello world")), resp.ContentLength)
}

func TestHandlerTransportPassesBody(t *testing.T) {
	require := require.New(t)

	client := &http.Client{Transport: httpx.NewHandlerTransport(echoApp())}
	resp, err := client.Post("http://api.internal/echo", "text/plain", strings.NewReader("ping"))
	require.NoError(err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	require.Equal(http.StatusCreated, resp.StatusCode)
	require.Equal("ping", string(body))
}

func TestHandlerTransportRecoversPanics(t *testing.T) {
	require := require.New(t)

	client := &http.Client{Transport: httpx.NewHandlerTransport(echoApp())}
	resp, err := client.Get("http://api.internal/panic")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusInternalServerError, resp.StatusCode)
}

func TestHandlerTransportHonoursCancelledContext(t *testing.T) {
	require := require.New(t)

	called := false
	rt := httpx.NewHandlerTransport(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://x", nil)
	_, err := rt.RoundTrip(req)
	require.ErrorIs(err, context.Canceled)
	require.False(called)
}

func TestUpstreamRewritesDestination(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Host", r.Host)
		w.Header().Set("X-Path", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	rt, err := httpx.NewUpstream(srv.URL+"/base", httpx.UpstreamOptions{PreserveHost: true})
	require.NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "http://tenant-a.example/items", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	defer resp.Body.Close()

	require.Equal(http.StatusAccepted, resp.StatusCode)
	require.Equal("tenant-a.example", resp.Header.Get("X-Host"))
	require.Equal("/base/items", resp.Header.Get("X-Path"))
	require.Same(req, resp.Request)
	require.Equal("tenant-a.example", req.URL.Host, "caller's request must not be modified")
}

func TestUpstreamWithoutPreserveHost(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Host", r.Host)
	}))
	defer srv.Close()

	rt, err := httpx.NewUpstream(srv.URL, httpx.UpstreamOptions{})
	require.NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "http://tenant-b.example/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(strings.TrimPrefix(srv.URL, "http://"), resp.Header.Get("X-Host"))
}

func TestUpstreamH2C(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(h2c.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
	}), &http2.Server{}))
	defer srv.Close()

	rt, err := httpx.NewUpstream(srv.URL, httpx.UpstreamOptions{Protocol: httpx.ProtocolH2C})
	require.NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "http://grpc-ish.internal/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal("HTTP/2.0", resp.Header.Get("X-Proto"))
}

func TestUpstreamH2OverTLS(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	rt, err := httpx.NewUpstream(srv.URL, httpx.UpstreamOptions{Protocol: httpx.ProtocolH2, InsecureSkipVerify: true})
	require.NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "https://secure.internal/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal("HTTP/2.0", resp.Header.Get("X-Proto"))
}

func TestNewUpstreamValidation(t *testing.T) {
	for _, tc := range []struct {
		target string
		opts   httpx.UpstreamOptions
	}{
		{"ftp://x", httpx.UpstreamOptions{}},
		{"http://", httpx.UpstreamOptions{}},
		{"http://x", httpx.UpstreamOptions{Protocol: httpx.ProtocolH2}},
		{"https://x", httpx.UpstreamOptions{Protocol: httpx.ProtocolH2C}},
		{"http://x", httpx.UpstreamOptions{Protocol: "quic"}},
	} {
		_, err := httpx.NewUpstream(tc.target, tc.opts)
		require.Error(t, err, tc.target)
	}
}

func TestStaticJSON(t *testing.T) {
	require := require.New(t)

	rt, err := httpx.NewStatic(http.StatusOK, http.Header{"X-Mock": {"1"}}, map[string]any{"ok": true, "path": "<a&b>"}, nil)
	require.NoError(err)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://mock/", nil)
		resp, err := rt.RoundTrip(req)
		require.NoError(err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		require.Equal(`{"ok":true,"path":"<a&b>"}`, string(body))
		require.Equal("application/json", resp.Header.Get("Content-Type"))
		require.Equal("1", resp.Header.Get("X-Mock"))
		require.Equal("200 OK", resp.Status)
	}
}

func TestStaticText(t *testing.T) {
	require := require.New(t)

	rt, err := httpx.NewStatic(http.StatusServiceUnavailable, nil, "down for maintenance", codec.Text)
	require.NoError(err)

	req, _ := http.NewRequest(http.MethodGet, "http://mock/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal("down for maintenance", string(body))
	require.Equal("text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestStaticEmptyBodyAndBadStatus(t *testing.T) {
	require := require.New(t)

	rt, err := httpx.NewStatic(0, nil, nil, nil)
	require.NoError(err)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(err)
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Zero(resp.ContentLength)

	_, err = httpx.NewStatic(42, nil, nil, nil)
	require.Error(err)
}

func TestWithTimeoutExpires(t *testing.T) {
	require := require.New(t)

	slow := httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		select {
		case <-r.Context().Done():
			return nil, r.Context().Err()
		case <-time.After(5 * time.Second):
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}
	})
	req, _ := http.NewRequest(http.MethodGet, "http://slow/", nil)
	_, err := httpx.WithTimeout(slow, 20*time.Millisecond).RoundTrip(req)
	require.True(errors.Is(err, context.DeadlineExceeded))
}

func TestWithTimeoutKeepsDeadlineUntilBodyClosed(t *testing.T) {
	require := require.New(t)

	var seen context.Context
	fast := httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Context()
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("x"))}, nil
	})
	req, _ := http.NewRequest(http.MethodGet, "http://fast/", nil)
	resp, err := httpx.WithTimeout(fast, time.Minute).RoundTrip(req)
	require.NoError(err)
	require.NoError(seen.Err())

	require.NoError(resp.Body.Close())
	require.ErrorIs(seen.Err(), context.Canceled)
}

func TestBackendsBehindTable(t *testing.T) {
	require := require.New(t)

	mock, err := httpx.NewStatic(http.StatusOK, nil, map[string]string{"tenant": "b"}, nil)
	require.NoError(err)

	table := routing.New()
	require.NoError(table.AddURIHandler("http://tenant-a", httpx.NewHandlerTransport(echoApp())))
	require.NoError(table.AddURIHandler("http://tenant-b", mock))
	client := &http.Client{Transport: table}

	resp, err := client.Get("http://tenant-a/hello/a")
	require.NoError(err)
	a, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal("hello a", string(a))

	resp, err = client.Get("http://tenant-b/anything")
	require.NoError(err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.JSONEq(`{"tenant":"b"}`, string(b))
}
