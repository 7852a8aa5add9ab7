package manifest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-route/pkg/codec"
	"github.com/joeydtaylor/steeze-route/pkg/origin"
)

// Backend binds one origin to the handler that serves it.
type Backend struct {
	// Either Origin ("scheme://host[:port]") or Host+Port.
	OriginURI string `toml:"origin"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`

	Type   BackendType `toml:"type"`
	Inproc *InprocSpec `toml:"inproc"`
	Proxy  *ProxySpec  `toml:"proxy"`
	Static *StaticSpec `toml:"static"`
	Policy Policy      `toml:"policy"`
	Tags   []string    `toml:"tags"`
}

type InprocSpec struct {
	Name string `toml:"name"`
}

type ProxySpec struct {
	URL                string `toml:"url"`
	Protocol           string `toml:"protocol"` // "h1" | "h2" | "h2c"
	PreserveHost       *bool  `toml:"preserve_host"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	DialTimeoutMS      int    `toml:"dial_timeout_ms"`
}

// KeepHost reports whether the original destination stays as the Host header (default true).
func (p *ProxySpec) KeepHost() bool {
	return p.PreserveHost == nil || *p.PreserveHost
}

type StaticSpec struct {
	Status  int               `toml:"status"`
	Headers map[string]string `toml:"headers"`
	Codec   string            `toml:"codec"` // "json" (default) | "text"
	Body    any               `toml:"body"`
}

type Policy struct {
	TimeoutMS int             `toml:"timeout_ms"`
	DownAuth  *DownstreamAuth `toml:"downstream_auth"`
}

// Timeout is the per-backend deadline; zero means none.
func (p Policy) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

type DownstreamAuth struct {
	Type       string `toml:"type"`        // "none" | "static-bearer" | "signed-jwt" | "passthrough"
	TokenEnv   string `toml:"token_env"`   // static-bearer
	SecretEnv  string `toml:"secret_env"`  // signed-jwt
	Issuer     string `toml:"issuer"`      // signed-jwt
	Audience   string `toml:"audience"`    // signed-jwt
	Subject    string `toml:"subject"`     // signed-jwt
	TTLSeconds int    `toml:"ttl_seconds"` // signed-jwt
	Header     string `toml:"header"`      // default: Authorization
}

// Origin resolves the backend's destination.
func (b *Backend) Origin() (origin.Origin, error) {
	if b.OriginURI != "" {
		return origin.Parse(b.OriginURI)
	}
	return origin.New(b.Host, b.Port)
}

// Label is a human-readable name for error messages.
func (b *Backend) Label() string {
	if b.OriginURI != "" {
		return b.OriginURI
	}
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// StaticHeader converts the static header table to an http.Header.
func (s *StaticSpec) StaticHeader() http.Header {
	if len(s.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return h
}

// normalize trims/lower-cases and fills defaults.
func (b *Backend) normalize() error {
	b.OriginURI = strings.TrimSpace(b.OriginURI)
	b.Host = strings.TrimSpace(b.Host)
	if b.OriginURI == "" && b.Host == "" {
		return errors.New("origin or host is required")
	}
	if b.OriginURI != "" && b.Host != "" {
		return errors.New("origin and host are mutually exclusive")
	}
	b.Type = BackendType(strings.ToLower(strings.TrimSpace(string(b.Type))))

	if p := b.Proxy; p != nil {
		p.URL = strings.TrimSpace(p.URL)
		p.Protocol = strings.ToLower(strings.TrimSpace(p.Protocol))
		if p.Protocol == "" {
			p.Protocol = "h1"
		}
	}
	if s := b.Static; s != nil {
		s.Codec = strings.ToLower(strings.TrimSpace(s.Codec))
		if s.Status == 0 {
			s.Status = http.StatusOK
		}
	}
	if da := b.Policy.DownAuth; da != nil {
		da.Type = strings.ToLower(strings.TrimSpace(da.Type))
		if da.Type == "" {
			da.Type = AuthNone
		}
		da.Header = strings.TrimSpace(da.Header)
	}
	return nil
}

// validate fields that are independent of global state.
func (b *Backend) validate() error {
	if _, err := b.Origin(); err != nil {
		return err
	}
	switch b.Type {
	case BackendInproc:
		if b.Inproc == nil || strings.TrimSpace(b.Inproc.Name) == "" {
			return errors.New("inproc.name required for inproc")
		}
	case BackendProxy:
		if b.Proxy == nil || b.Proxy.URL == "" {
			return errors.New("proxy.url required for proxy")
		}
		switch b.Proxy.Protocol {
		case "h1", "h2", "h2c":
		default:
			return fmt.Errorf("proxy.protocol %q invalid", b.Proxy.Protocol)
		}
		if b.Proxy.DialTimeoutMS < 0 {
			return errors.New("proxy.dial_timeout_ms must be >= 0")
		}
	case BackendStatic:
		if b.Static == nil {
			return errors.New("static table required for static")
		}
		if b.Static.Status < 100 || b.Static.Status > 999 {
			return fmt.Errorf("static.status %d invalid", b.Static.Status)
		}
		if _, err := codec.Lookup(b.Static.Codec); err != nil {
			return fmt.Errorf("static.codec: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend type %q", b.Type)
	}

	if b.Policy.TimeoutMS < 0 {
		return errors.New("policy.timeout_ms must be >= 0")
	}
	if da := b.Policy.DownAuth; da != nil {
		switch da.Type {
		case AuthNone, AuthPassthrough:
		case AuthStaticBearer:
		case AuthSignedJWT:
			if strings.TrimSpace(da.SecretEnv) == "" {
				return errors.New("policy.downstream_auth.secret_env required for signed-jwt")
			}
			if da.TTLSeconds < 0 {
				return errors.New("policy.downstream_auth.ttl_seconds must be >= 0")
			}
		default:
			return fmt.Errorf("policy.downstream_auth.type %q invalid", da.Type)
		}
	}
	return nil
}
