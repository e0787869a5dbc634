package plugin

import (
	"fmt"
	"strconv"
	"sync"
)

// Config holds the opaque options the host supplies to a plugin.
type Config map[string]interface{}

// String returns the string option for key, or def when the key is absent
// or not a string.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the boolean option for key, or def when absent.
// The strings "true" and "false" are accepted as well.
func (c Config) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Float returns the numeric option for key, or def when absent.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Has reports whether key is present, regardless of its value.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Base carries the identity every plugin shares. Concrete plugins embed it.
type Base struct {
	name    string
	config  Config
	mu      sync.RWMutex
	enabled bool
}

// NewBase creates the shared plugin state. The enabled flag comes from the
// "enabled" option and defaults to true.
func NewBase(name string, config Config) *Base {
	if config == nil {
		config = Config{}
	}
	return &Base{
		name:    name,
		config:  config,
		enabled: config.Bool("enabled", true),
	}
}

// Name returns the plugin name.
func (b *Base) Name() string { return b.name }

// Config returns the plugin options.
func (b *Base) Config() Config { return b.config }

// IsEnabled reports the runtime enabled flag.
func (b *Base) IsEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled toggles the runtime enabled flag.
func (b *Base) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// String implements fmt.Stringer for log output.
func (b *Base) String() string {
	return fmt.Sprintf("plugin(%s)", b.name)
}
