package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/joeydtaylor/steeze-route/pkg/routing"
	"github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
)

// Collect wraps next and records the outbound counters/histogram.
func Collect(next http.RoundTripper) http.RoundTripper {
	return &collector{next: next}
}

type collector struct {
	next http.RoundTripper
}

func (c *collector) RoundTrip(r *http.Request) (*http.Response, error) {
	if isSkipOrigin(r) {
		return c.next.RoundTrip(r)
	}

	start := time.Now()
	res, err := c.next.RoundTrip(r)
	elapsed := time.Since(start)

	o := normalizeOrigin(r)
	method := r.Method
	responseTime.Observe(elapsed.Seconds())

	if err != nil {
		reason := "error"
		if errors.Is(err, routing.ErrHandlerNotFound) {
			reason = "not_found"
		}
		totalOutboundFailures.WithLabelValues(o, reason).Inc()
		return res, err
	}

	code := strconv.Itoa(res.StatusCode)
	totalOutboundRequestsToOrigin.WithLabelValues(code, o, method).Inc()
	totalOutboundRequests.WithLabelValues(code, method).Inc()
	return res, nil
}

func (c *collector) CloseIdleConnections() {
	httpx.CloseIdleConnections(c.next)
}
