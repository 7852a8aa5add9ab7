package logger

import (
	"net/http"
	"strings"
	"sync"
)

var (
	bodyLogMu      sync.RWMutex
	bodyLogOrigins = map[string]struct{}{}
)

// AddBodyLogOrigins enables request body logging for the given origin keys
// ("host:port", host lower-cased).
func AddBodyLogOrigins(keys ...string) {
	bodyLogMu.Lock()
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			bodyLogOrigins[k] = struct{}{}
		}
	}
	bodyLogMu.Unlock()
}

func bodyLogEnabled(key string) bool {
	bodyLogMu.RLock()
	_, ok := bodyLogOrigins[key]
	bodyLogMu.RUnlock()
	return ok
}

// Only log small JSON request bodies to allowlisted origins.
func shouldLogBody(r *http.Request, key string) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	if r.ContentLength < 0 || r.ContentLength > 1<<16 { // 64 KiB cap
		return false
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return false
	}
	return bodyLogEnabled(key)
}
