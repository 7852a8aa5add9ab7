package core

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-route/pkg/codec"
	manifest "github.com/joeydtaylor/steeze-route/pkg/manifest"
	"github.com/joeydtaylor/steeze-route/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-route/pkg/routing"
	httpx "github.com/joeydtaylor/steeze-route/pkg/transport/httpx"
	"go.uber.org/zap"
)

type BuildDeps struct {
	Logger *zap.Logger
	// Creds overrides every backend's downstream_auth when set.
	Creds auth.CredentialsProvider
	// Handlers resolves inproc names; defaults to Lookup.
	Handlers func(name string) (http.Handler, bool)
}

// BuildTable registers one handler per manifest backend. cfg must already be
// validated. The first failing backend aborts the build.
func BuildTable(cfg manifest.Config, d BuildDeps) (*routing.Table, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Handlers == nil {
		d.Handlers = Lookup
	}

	t := routing.New(routing.WithLogger(d.Logger))
	for i, b := range cfg.Backends {
		o, err := b.Origin()
		if err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, b.Label(), err)
		}
		h, err := buildBackend(b, d)
		if err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, b.Label(), err)
		}
		if err := t.AddHandler(o, h); err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, b.Label(), err)
		}
		d.Logger.Info("backend registered",
			zap.String("origin", o.Key()),
			zap.String("type", string(b.Type)),
			zap.Duration("timeout", b.Policy.Timeout()),
		)
	}
	return t, nil
}

func buildBackend(b manifest.Backend, d BuildDeps) (http.RoundTripper, error) {
	var (
		h   http.RoundTripper
		err error
	)
	switch b.Type {
	case manifest.BackendInproc:
		app, ok := d.Handlers(b.Inproc.Name)
		if !ok {
			return nil, fmt.Errorf("inproc handler %q not registered", b.Inproc.Name)
		}
		h = httpx.NewHandlerTransport(app)
	case manifest.BackendProxy:
		h, err = httpx.NewUpstream(b.Proxy.URL, httpx.UpstreamOptions{
			Protocol:           b.Proxy.Protocol,
			PreserveHost:       b.Proxy.KeepHost(),
			InsecureSkipVerify: b.Proxy.InsecureSkipVerify,
			DialTimeout:        time.Duration(b.Proxy.DialTimeoutMS) * time.Millisecond,
		})
	case manifest.BackendStatic:
		var c codec.Codec
		if c, err = codec.Lookup(b.Static.Codec); err == nil {
			h, err = httpx.NewStatic(b.Static.Status, b.Static.StaticHeader(), b.Static.Body, c)
		}
	default:
		err = fmt.Errorf("unknown backend type %q", b.Type)
	}
	if err != nil {
		return nil, err
	}

	h = httpx.WithTimeout(h, b.Policy.Timeout())

	p, err := credentialsFor(b, d)
	if err != nil {
		return nil, err
	}
	return auth.Transport(h, p), nil
}
