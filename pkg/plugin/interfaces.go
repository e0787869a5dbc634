// Package plugin provides the plugin system interfaces, the instance registry
// and the factory catalogue for the media player. Format and button packages
// register factories from init() functions, which allows compile-time plugin
// selection and override mechanisms for private implementations.
package plugin

// Type is the declared kind of a plugin. Discovery queries are always scoped
// to a single type.
type Type string

const (
	TypeButton Type = "button"
	TypeVideo  Type = "video"
)

// Plugin is the core interface that all plugins must implement.
// Identity, type and config are fixed at construction; only the enabled
// flag changes at runtime.
type Plugin interface {
	// Name returns the unique identifier for this plugin.
	// This name is used for registration and logging.
	Name() string

	// Type returns the declared plugin kind.
	Type() Type

	// IsEnabled reports whether the host configuration enabled the plugin.
	IsEnabled() bool

	// SetEnabled toggles the plugin at runtime.
	SetEnabled(enabled bool)

	// Config returns the options supplied by the host for this plugin.
	Config() Config
}

// ShadowStateProvider is an optional interface for components that expose a
// snapshot of their last known playback state for observability.
type ShadowStateProvider interface {
	GetShadowState() interface{}
}

// Factory is a function that creates a new plugin instance given a context.
// Factories are registered with the global catalogue and called during
// application startup to instantiate plugins.
type Factory func(ctx *Context) (Plugin, error)

// Predicate filters plugins during a registry query. Predicates must not
// mutate the plugin they inspect.
type Predicate func(p Plugin) bool

// Enabled is a Predicate that keeps enabled plugins only.
func Enabled(p Plugin) bool {
	return p.IsEnabled()
}

// Any is a Predicate that keeps every plugin.
func Any(Plugin) bool {
	return true
}
