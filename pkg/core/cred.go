package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	manifest "github.com/joeydtaylor/steeze-route/pkg/manifest"
	"github.com/joeydtaylor/steeze-route/pkg/middleware/auth"
)

// credentialsFor picks the provider for one backend. A custom provider in
// BuildDeps wins over the manifest; nil means no credentials.
func credentialsFor(b manifest.Backend, d BuildDeps) (auth.CredentialsProvider, error) {
	if d.Creds != nil {
		return d.Creds, nil
	}
	da := b.Policy.DownAuth
	if da == nil {
		return nil, nil
	}
	switch da.Type {
	case manifest.AuthNone:
		return nil, nil
	case manifest.AuthPassthrough:
		return auth.ContextProvider{}, nil
	case manifest.AuthStaticBearer:
		return auth.StaticBearerProvider{EnvVar: da.TokenEnv, HeaderName: da.Header}, nil
	case manifest.AuthSignedJWT:
		secret := strings.TrimSpace(os.Getenv(da.SecretEnv))
		if secret == "" {
			return nil, fmt.Errorf("signed-jwt: env %s is empty", da.SecretEnv)
		}
		return auth.SignedJWTProvider{
			Secret:     []byte(secret),
			Issuer:     da.Issuer,
			Audience:   da.Audience,
			Subject:    da.Subject,
			TTL:        time.Duration(da.TTLSeconds) * time.Second,
			HeaderName: da.Header,
		}, nil
	}
	return nil, fmt.Errorf("downstream_auth.type %q invalid", da.Type)
}
