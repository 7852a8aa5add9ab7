// core/handlers.go
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrHandlerExists is returned when a name is registered twice.
var ErrHandlerExists = errors.New("inproc handler already registered")

// InprocHandler is the signature for user-defined in-process handlers.
// 'in' is the raw request body, 'status' is HTTP status code to send.
type InprocHandler func(ctx context.Context, in []byte) (out []byte, status int, err error)

var (
	regMu    sync.RWMutex
	registry = map[string]http.Handler{}
)

// Register makes a handler available under a name referenced in manifest.toml.
// Names are never overwritten.
func Register(name string, h http.Handler) error {
	name = strings.TrimSpace(name)
	if name == "" || h == nil {
		return errors.New("register: name and handler are required")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	registry[name] = h
	return nil
}

// RegisterFunc registers a body-in/body-out handler that replies with JSON.
func RegisterFunc(name string, fn InprocHandler) error {
	if fn == nil {
		return errors.New("register: name and handler are required")
	}
	return Register(name, FuncHandler(fn))
}

// MustRegister is Register for init-time wiring.
func MustRegister(name string, h http.Handler) {
	if err := Register(name, h); err != nil {
		panic(err)
	}
}

// Lookup retrieves a registered in-proc handler by name.
func Lookup(name string) (http.Handler, bool) {
	regMu.RLock()
	h, ok := registry[strings.TrimSpace(name)]
	regMu.RUnlock()
	return h, ok
}

// FuncHandler adapts an InprocHandler to http.Handler.
func FuncHandler(fn InprocHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		out, status, err := fn(r.Context(), in)
		if err != nil {
			http.Error(w, err.Error(), statusIf(status, http.StatusInternalServerError))
			return
		}
		writeJSON(w, out, statusIf(status, http.StatusOK))
	})
}

func writeJSON(w http.ResponseWriter, payload []byte, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func statusIf(s, def int) int {
	if s > 0 {
		return s
	}
	return def
}
