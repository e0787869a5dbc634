package plugin

import (
	"context"

	"mediaplayer/pkg/surface"

	"go.uber.org/zap"
)

// ResourceResolver maps a manifest-relative resource path to a fetchable URL.
type ResourceResolver interface {
	Resolve(src string) string
}

// Controller is the playback control surface the host exposes to button
// plugins.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Paused(ctx context.Context) (bool, error)

	// StreamNames lists the loaded streams, main audio first.
	StreamNames() []string
	MainAudioStream() string
	EnableStream(content string) error
	// DisableStream returns the resulting enabled flag of the stream.
	DisableStream(content string) (bool, error)
	StreamEnabled(content string) bool
}

// Context provides dependencies to plugins during initialization.
// It wraps the core services needed by all plugins in a single struct
// for cleaner constructor signatures.
type Context struct {
	// Logger is a structured logger for the plugin to use.
	// Plugins should use logger.Named("pluginname") for namespacing.
	Logger *zap.Logger

	// Resolver turns manifest source paths into URLs.
	Resolver ResourceResolver

	// Capabilities answers media type support queries for format
	// negotiation. Nil means no platform probe is available.
	Capabilities surface.TypeProber

	// ConfigDir is the path to the configuration directory.
	ConfigDir string

	// Player controls playback. It may be nil in tests that only
	// exercise discovery.
	Player Controller

	// Plugins holds the per-plugin options from the player configuration,
	// keyed by plugin name.
	Plugins map[string]Config
}

// NewContext creates a new plugin context with all required dependencies.
func NewContext(
	logger *zap.Logger,
	resolver ResourceResolver,
	configDir string,
	plugins map[string]Config,
) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Logger:    logger,
		Resolver:  resolver,
		ConfigDir: configDir,
		Plugins:   plugins,
	}
}

// ConfigFor returns the options configured for the named plugin.
// The result is never nil.
func (c *Context) ConfigFor(name string) Config {
	if c == nil || c.Plugins == nil {
		return Config{}
	}
	if cfg, ok := c.Plugins[name]; ok && cfg != nil {
		return cfg
	}
	return Config{}
}
