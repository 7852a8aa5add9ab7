package manifest

import (
	"fmt"

	"github.com/joeydtaylor/steeze-route/pkg/origin"
)

// Config is the top-level manifest: one entry per destination origin.
type Config struct {
	Backends []Backend `toml:"backend"`
}

// Validate normalizes every backend in place, then checks it. Two backends
// resolving to the same origin key are rejected.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one [[backend]] is required")
	}
	seen := make(map[string]int, len(c.Backends))
	for i := range c.Backends {
		b := &c.Backends[i]
		if err := b.normalize(); err != nil {
			return fmt.Errorf("backend %d: %w", i, err)
		}
		if err := b.validate(); err != nil {
			return fmt.Errorf("backend %d (%s): %w", i, b.Label(), err)
		}
		o, err := b.Origin()
		if err != nil {
			return fmt.Errorf("backend %d (%s): %w", i, b.Label(), err)
		}
		if j, dup := seen[o.Key()]; dup {
			return fmt.Errorf("backend %d (%s): origin %s already declared by backend %d", i, b.Label(), o.Key(), j)
		}
		seen[o.Key()] = i
	}
	return nil
}

// Origins returns the resolved origin of every backend, in manifest order.
// Call after Validate.
func (c *Config) Origins() ([]origin.Origin, error) {
	out := make([]origin.Origin, 0, len(c.Backends))
	for i := range c.Backends {
		o, err := c.Backends[i].Origin()
		if err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}
