// pkg/origin/origin.go
package origin

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidArgument reports malformed input to Origin construction.
var ErrInvalidArgument = errors.New("invalid argument")

// Origin identifies a network destination by host and port.
// Hosts compare case-insensitively; use Equal, not ==.
type Origin struct {
	host string
	port int
}

var defaultPorts = map[string]int{
	"http":   80,
	"ws":     80,
	"https":  443,
	"wss":    443,
	"ftp":    21,
	"gopher": 70,
	"ldap":   389,
	"nntp":   119,
}

// DefaultPort returns the well-known port for scheme.
func DefaultPort(scheme string) (int, bool) {
	p, ok := defaultPorts[strings.ToLower(scheme)]
	return p, ok
}

// New returns an Origin for host and port. The port is stored as given.
func New(host string, port int) (Origin, error) {
	host = strings.TrimSpace(host)
	// "[::1]" is stored bare; Key adds the brackets back.
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return Origin{}, fmt.Errorf("%w: host is required", ErrInvalidArgument)
	}
	return Origin{host: host, port: port}, nil
}

// Parse builds an Origin from an absolute URI, applying the scheme's default
// port when the URI omits one.
func Parse(uri string) (Origin, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Origin{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !u.IsAbs() {
		return Origin{}, fmt.Errorf("%w: %q is not an absolute uri", ErrInvalidArgument, uri)
	}
	return FromURL(u)
}

// MustParse is like Parse but panics on error.
func MustParse(uri string) Origin {
	o, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return o
}

// FromURL derives the Origin of an already parsed URL.
func FromURL(u *url.URL) (Origin, error) {
	if u == nil {
		return Origin{}, fmt.Errorf("%w: nil url", ErrInvalidArgument)
	}
	host := u.Hostname()
	if host == "" {
		return Origin{}, fmt.Errorf("%w: %q has no host", ErrInvalidArgument, u.String())
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Origin{}, fmt.Errorf("%w: port %q", ErrInvalidArgument, p)
		}
		return New(host, port)
	}
	port, ok := DefaultPort(u.Scheme)
	if !ok {
		return Origin{}, fmt.Errorf("%w: no port in %q and no default for scheme %q", ErrInvalidArgument, u.String(), u.Scheme)
	}
	return New(host, port)
}

func (o Origin) Host() string { return o.host }
func (o Origin) Port() int    { return o.port }

// Key is the normalized "{host}:{port}" form with the host lower-cased.
// IPv6 literals are bracketed.
func (o Origin) Key() string {
	return net.JoinHostPort(strings.ToLower(o.host), strconv.Itoa(o.port))
}

func (o Origin) String() string { return o.Key() }

// Equal reports whether both origins name the same destination.
func (o Origin) Equal(other Origin) bool {
	return o.Key() == other.Key()
}

// Hash is consistent with Equal.
func (o Origin) Hash() uint64 {
	return xxhash.Sum64String(o.Key())
}

// IsZero reports whether o was never constructed.
func (o Origin) IsZero() bool { return o.host == "" }
