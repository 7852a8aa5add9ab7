package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joeydtaylor/steeze-route/pkg/routing"
	"github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func status(code int) http.RoundTripper {
	return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: http.NoBody, Request: r}, nil
	})
}

func TestCollectCountsResponses(t *testing.T) {
	require := require.New(t)

	rt := Collect(status(http.StatusCreated))
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodPost, "http://Collect-A.internal/x", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(err)
	}

	require.Equal(3.0, testutil.ToFloat64(totalOutboundRequestsToOrigin.WithLabelValues("201", "collect-a.internal:80", "POST")))
	require.GreaterOrEqual(testutil.ToFloat64(totalOutboundRequests.WithLabelValues("201", "POST")), 3.0)
}

func TestCollectClassifiesFailures(t *testing.T) {
	require := require.New(t)

	table := routing.New()
	rt := Collect(table)
	req, _ := http.NewRequest(http.MethodGet, "http://missing.internal/", nil)
	_, err := rt.RoundTrip(req)
	require.ErrorIs(err, routing.ErrHandlerNotFound)
	require.Equal(1.0, testutil.ToFloat64(totalOutboundFailures.WithLabelValues("missing.internal:80", "not_found")))

	broken := Collect(httpx.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("reset by peer")
	}))
	req, _ = http.NewRequest(http.MethodGet, "https://broken.internal/", nil)
	_, err = broken.RoundTrip(req)
	require.Error(err)
	require.Equal(1.0, testutil.ToFloat64(totalOutboundFailures.WithLabelValues("broken.internal:443", "error")))
}

func TestSkipOriginsAndNormalizer(t *testing.T) {
	require := require.New(t)

	AddSkipOrigins("Skipped.internal:80")
	rt := Collect(status(http.StatusOK))
	req, _ := http.NewRequest(http.MethodGet, "http://skipped.internal/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(err)
	require.Zero(testutil.ToFloat64(totalOutboundRequestsToOrigin.WithLabelValues("200", "skipped.internal:80", "GET")))

	SetOriginNormalizer(func(r *http.Request) string {
		if strings.HasPrefix(r.URL.Hostname(), "tenant-") {
			return "tenants"
		}
		return defaultOrigin(r)
	})
	defer SetOriginNormalizer(defaultOrigin)

	for _, h := range []string{"tenant-1", "tenant-2"} {
		req, _ := http.NewRequest(http.MethodDelete, "http://"+h+"/", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(err)
	}
	require.Equal(2.0, testutil.ToFloat64(totalOutboundRequestsToOrigin.WithLabelValues("200", "tenants", "DELETE")))
}

func TestPromHandlerExposesCollectors(t *testing.T) {
	require := require.New(t)

	req, _ := http.NewRequest(http.MethodGet, "http://expose.internal/", nil)
	_, err := Collect(status(http.StatusOK)).RoundTrip(req)
	require.NoError(err)

	rec := httptest.NewRecorder()
	ProvideMetrics().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.Contains(string(body), "total_outbound_requests_to_origin")
	require.Contains(string(body), "outbound_response_time")
}

func observations(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, responseTime.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestResponseTimeIncludesFailures(t *testing.T) {
	require := require.New(t)

	before := observations(t)
	rt := Collect(httpx.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("timeout")
	}))
	req, _ := http.NewRequest(http.MethodGet, "http://latency.internal/", nil)
	_, err := rt.RoundTrip(req)
	require.Error(err)
	require.Equal(before+1, observations(t))
}
