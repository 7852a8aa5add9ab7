// pkg/codec/codec.go
package codec

import (
	"fmt"
	"strings"
)

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

var byName = map[string]Codec{
	"":     JSONStrict,
	"json": JSONStrict,
	"text": Text,
}

// Lookup resolves a codec by its manifest name ("json", "text").
// The empty name means json.
func Lookup(name string) (Codec, error) {
	c, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	return c, nil
}
