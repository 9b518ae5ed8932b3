package depth

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config is the read-only configuration for a single conversion call.
// It is passed by value so an in-flight conversion can never observe
// a concurrent change.
type Config struct {
	// MinDepth and MaxDepth clamp the depth window; samples outside it saturate.
	MinDepth uint16
	MaxDepth uint16
	// Threads is the worker count for the conversion; 0 uses all available
	// hardware parallelism.
	Threads int
}

// DefaultConfig covers the full 16-bit depth range with automatic parallelism.
func DefaultConfig() Config {
	return Config{MinDepth: 1, MaxDepth: 65535}
}

// Validate ensures the clamp window is usable.
func (c Config) Validate() error {
	var err error
	if c.MinDepth < 1 {
		err = multierr.Combine(err, errors.New("min depth must be at least 1"))
	}
	if c.MinDepth > c.MaxDepth {
		err = multierr.Combine(err, errors.Errorf("min depth %d exceeds max depth %d", c.MinDepth, c.MaxDepth))
	}
	return err
}

// disparityWindow derives the disparity bounds from the clamp window. It is
// recomputed on every call rather than cached since the window may change
// between calls.
func (c Config) disparityWindow() (float64, float64) {
	return 1 / float64(c.MaxDepth), 1 / float64(c.MinDepth)
}
