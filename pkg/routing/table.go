// pkg/routing/table.go
package routing

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-route/pkg/origin"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument is origin.ErrInvalidArgument, re-exported for callers
	// that only import routing.
	ErrInvalidArgument = origin.ErrInvalidArgument
	ErrDuplicateKey    = errors.New("duplicate origin")
	ErrHandlerNotFound = errors.New("handler not found")
)

// NotFoundError is returned by RoundTrip when no handler is registered for
// the request's origin. Known lists every registered key at lookup time.
type NotFoundError struct {
	Key   string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("host %q not found, valid hosts are %s", e.Key, strings.Join(e.Known, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrHandlerNotFound }

type entry struct {
	origin  origin.Origin
	handler http.RoundTripper
}

// Table is an http.RoundTripper that forwards each request to the handler
// registered for the request's host and port. It never alters the request
// or the handler's outcome.
type Table struct {
	mu    sync.RWMutex
	hosts map[string]entry
	log   *zap.Logger
}

type Option func(*Table)

// WithLogger records registrations at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.log = l
		}
	}
}

func New(opts ...Option) *Table {
	t := &Table{
		hosts: make(map[string]entry),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// AddHandler registers h for o. Registering a second handler for an origin
// that normalizes to an existing key fails with ErrDuplicateKey and leaves
// the table unchanged.
func (t *Table) AddHandler(o origin.Origin, h http.RoundTripper) error {
	if o.IsZero() {
		return fmt.Errorf("%w: zero origin", ErrInvalidArgument)
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrInvalidArgument, o.Key())
	}
	key := o.Key()

	t.mu.Lock()
	if _, ok := t.hosts[key]; ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	t.hosts[key] = entry{origin: o, handler: h}
	t.mu.Unlock()

	t.log.Debug("handler registered", zap.String("origin", key))
	return nil
}

// AddHostHandler is AddHandler for an origin built from host and port.
func (t *Table) AddHostHandler(host string, port int, h http.RoundTripper) error {
	o, err := origin.New(host, port)
	if err != nil {
		return err
	}
	return t.AddHandler(o, h)
}

// AddURIHandler is AddHandler for an origin parsed from uri.
func (t *Table) AddURIHandler(uri string, h http.RoundTripper) error {
	o, err := origin.Parse(uri)
	if err != nil {
		return err
	}
	return t.AddHandler(o, h)
}

// Lookup returns the handler registered for o.
func (t *Table) Lookup(o origin.Origin) (http.RoundTripper, bool) {
	t.mu.RLock()
	e, ok := t.hosts[o.Key()]
	t.mu.RUnlock()
	return e.handler, ok
}

// RoundTrip implements http.RoundTripper.
func (t *Table) RoundTrip(req *http.Request) (*http.Response, error) {
	key := requestKey(req)

	t.mu.RLock()
	e, ok := t.hosts[key]
	var known []string
	if !ok {
		known = t.keysLocked()
	}
	t.mu.RUnlock()

	if !ok {
		if req != nil && req.Body != nil {
			req.Body.Close()
		}
		return nil, &NotFoundError{Key: key, Known: known}
	}
	return e.handler.RoundTrip(req)
}

// Keys returns the registered keys, sorted.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.keysLocked()
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hosts)
}

// CloseIdleConnections forwards to every handler that supports it.
func (t *Table) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }

	t.mu.RLock()
	handlers := make([]http.RoundTripper, 0, len(t.hosts))
	for _, e := range t.hosts {
		handlers = append(handlers, e.handler)
	}
	t.mu.RUnlock()

	for _, h := range handlers {
		if c, ok := h.(closeIdler); ok {
			c.CloseIdleConnections()
		}
	}
}

func (t *Table) keysLocked() []string {
	keys := make([]string, 0, len(t.hosts))
	for k := range t.hosts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// requestKey normalizes the request destination exactly like Origin.Key.
// Destinations that cannot form an Origin fall back to their raw text so
// the miss still reports something useful.
func requestKey(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	o, err := origin.FromURL(req.URL)
	if err == nil {
		return o.Key()
	}
	host := strings.ToLower(req.URL.Hostname())
	if p := req.URL.Port(); p != "" {
		return net.JoinHostPort(host, p)
	}
	return host
}
