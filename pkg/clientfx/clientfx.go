package clientfx

import (
	"context"
	"net/http"
	"os"

	"github.com/joeydtaylor/steeze-route/pkg/core"
	"github.com/joeydtaylor/steeze-route/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-route/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-route/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-route/pkg/routing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Config struct {
	Service         string // for logs only
	ManifestEnv     string // e.g., BILLING_CLIENT_MANIFEST
	DefaultManifest string // e.g., "backends.toml"

	// Creds, when set, replaces every backend's downstream_auth.
	Creds auth.CredentialsProvider
}

type Option func(*Config)

func WithService(s string) Option            { return func(c *Config) { c.Service = s } }
func WithManifestEnv(k string) Option        { return func(c *Config) { c.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(c *Config) { c.DefaultManifest = path } }
func WithCredentials(p auth.CredentialsProvider) Option {
	return func(c *Config) { c.Creds = p }
}

func defaultConfig() Config {
	return Config{
		Service:         "app",
		ManifestEnv:     "APP_BACKENDS_MANIFEST",
		DefaultManifest: "backends.toml",
	}
}

// Module returns a complete Fx option set; add app-specific fx.Invoke(...) alongside.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		// Core middleware
		logger.Module,
		metrics.Module,
		// Config into DI
		fx.Provide(func() Config { return cfg }),
		// Dispatcher
		fx.Provide(provideTable),
		fx.Provide(fx.Annotate(provideTransport, fx.ResultTags(`name:"client"`))),
		fx.Provide(fx.Annotate(provideHTTPClient, fx.ParamTags(`name:"client"`))),
		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Dispatcher ----------

func provideTable(cfg Config, zl *zap.Logger) (*routing.Table, error) {
	path := envOr(cfg.ManifestEnv, cfg.DefaultManifest)
	man, err := core.LoadConfig(path)
	if err != nil {
		zl.Error("manifest load failed", zap.Error(err), zap.String("path", path))
		return nil, err
	}
	return core.BuildTable(man, core.BuildDeps{
		Logger: zl.With(zap.String("service", cfg.Service)),
		Creds:  cfg.Creds,
	})
}

// metrics outermost so failed dispatches are still counted.
func provideTransport(t *routing.Table, lm *logger.Middleware) http.RoundTripper {
	return metrics.Collect(lm.Transport(t))
}

func provideHTTPClient(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt}
}

// ---------- Lifecycle ----------

type hookDeps struct {
	fx.In
	Logger *zap.Logger
	Config Config
	Table  *routing.Table
	Client *http.Client
}

func registerHooks(lc fx.Lifecycle, d hookDeps) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Logger.Info("outbound client ready",
				zap.String("service", d.Config.Service),
				zap.Strings("origins", d.Table.Keys()),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			d.Logger.Info("outbound client stopping", zap.String("service", d.Config.Service))
			d.Client.CloseIdleConnections()
			return nil
		},
	})
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if k == "" {
		return def
	}
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
