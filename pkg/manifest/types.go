package manifest

// BackendType enumerates the supported backend kinds.
type BackendType string

const (
	BackendInproc BackendType = "inproc"
	BackendProxy  BackendType = "proxy"
	BackendStatic BackendType = "static"
)

// Downstream auth types.
const (
	AuthNone         = "none"
	AuthStaticBearer = "static-bearer"
	AuthSignedJWT    = "signed-jwt"
	AuthPassthrough  = "passthrough"
)
