package codec

import (
	"fmt"
)

type text struct{}

// Text passes strings and byte slices through unchanged.
var Text Codec = text{}

func (text) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return append([]byte(nil), t...), nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("text codec: unsupported type %T", v)
	}
}

func (text) Unmarshal(data []byte, v any) error {
	switch p := v.(type) {
	case *string:
		*p = string(data)
	case *[]byte:
		*p = append((*p)[:0], data...)
	default:
		return fmt.Errorf("text codec: unsupported target %T", v)
	}
	return nil
}

func (text) ContentType() string { return "text/plain; charset=utf-8" }
