package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-route/pkg/origin"
)

var (
	skipMu      sync.RWMutex
	skipOrigins = map[string]struct{}{}

	normMu           sync.RWMutex
	originNormalizer = defaultOrigin
)

// AddSkipOrigins excludes origin keys ("host:port") from collection.
func AddSkipOrigins(keys ...string) {
	skipMu.Lock()
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			skipOrigins[k] = struct{}{}
		}
	}
	skipMu.Unlock()
}

// SetOriginNormalizer allows callers to collapse the origin label (e.g. per-tenant hosts).
// By default it returns the origin key.
func SetOriginNormalizer(fn func(*http.Request) string) {
	if fn == nil {
		return
	}
	normMu.Lock()
	originNormalizer = fn
	normMu.Unlock()
}

func defaultOrigin(r *http.Request) string {
	if o, err := origin.FromURL(r.URL); err == nil {
		return o.Key()
	}
	if r.URL != nil {
		return strings.ToLower(r.URL.Host)
	}
	return ""
}

func isSkipOrigin(r *http.Request) bool {
	k := defaultOrigin(r)
	skipMu.RLock()
	_, ok := skipOrigins[k]
	skipMu.RUnlock()
	return ok
}

func normalizeOrigin(r *http.Request) string {
	normMu.RLock()
	fn := originNormalizer
	normMu.RUnlock()
	return fn(r)
}
