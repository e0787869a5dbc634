// Package video defines the video format plugin contract, the Video
// playback state machine contract, and first-match format selection.
package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
)

// ErrNoSources is returned by LoadStreamData when the stream has no source
// for the plugin's format.
var ErrNoSources = errors.New("stream has no sources for this format")

// NoCompatibleFormatError is returned when no registered video plugin
// accepts a stream.
type NoCompatibleFormatError struct {
	Content string
}

func (e *NoCompatibleFormatError) Error() string {
	if e.Content == "" {
		return "no compatible video format found"
	}
	return fmt.Sprintf("no compatible video format found for stream %q", e.Content)
}

// Plugin is a video format: it negotiates compatibility with a stream and
// builds Video instances for the streams it accepts.
type Plugin interface {
	plugin.Plugin

	// StreamType is the key of the manifest source list the format reads.
	StreamType() string

	// IsCompatible must not panic on missing fields; an absent source list
	// is simply incompatible.
	IsCompatible(stream *StreamData) bool

	// CompatibleFileExtensions lists lower-case extensions without dots.
	CompatibleFileExtensions() []string

	// ManifestData turns resource URLs into this format's source map.
	ManifestData(fileURLs []string) map[string][]SourceDescriptor

	// NewVideo builds a fresh Video bound to s. Instances are never reused.
	NewVideo(s surface.Surface, isMainAudio bool) (Video, error)
}

// Video is the playback state machine for one stream on one render surface.
// Transport calls wait for readiness before touching the surface; while
// disabled they read and write a shadow snapshot instead.
type Video interface {
	LoadStreamData(ctx context.Context, stream *StreamData) error
	ClearStreamData()
	WaitForLoaded(ctx context.Context, pauseAfterReady bool) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Duration(ctx context.Context) (float64, error)
	CurrentTime(ctx context.Context) (float64, error)
	// CurrentTimeSync returns -1 while an enabled Video is not ready.
	CurrentTimeSync() float64
	SetCurrentTime(ctx context.Context, t float64) (float64, error)
	Volume(ctx context.Context) (float64, error)
	SetVolume(ctx context.Context, v float64) (float64, error)
	Paused(ctx context.Context) (bool, error)
	PlaybackRate(ctx context.Context) (float64, error)
	SetPlaybackRate(ctx context.Context, rate float64) (float64, error)
	Dimensions(ctx context.Context) (Dimensions, error)

	// Qualities returns nil when the format has a single quality level.
	Qualities(ctx context.Context) ([]Quality, error)
	SetQuality(ctx context.Context, q Quality) error
	CurrentQuality() int
	Sources() []Source

	Enable()
	// Disable returns the resulting enabled flag; the main audio Video
	// refuses and stays enabled.
	Disable() bool
	IsEnabled() bool
	IsMainAudio() bool
	Ready() bool
	StreamData() *StreamData

	// OnEnded installs the end-of-stream callback.
	OnEnded(fn func())
}

// Plugins returns the registered video plugins matching pred, in
// registration order.
func Plugins(r *plugin.Registry, pred plugin.Predicate) []Plugin {
	matches := r.Query(plugin.TypeVideo, pred)
	result := make([]Plugin, 0, len(matches))
	for _, p := range matches {
		if vp, ok := p.(Plugin); ok {
			result = append(result, vp)
		}
	}
	return result
}

// SelectPlugin returns the first enabled video plugin, in registration
// order, whose IsCompatible accepts stream. This is a first-match policy:
// registration order decides between several compatible formats.
func SelectPlugin(r *plugin.Registry, stream *StreamData) (Plugin, error) {
	for _, p := range Plugins(r, plugin.Enabled) {
		if p.IsCompatible(stream) {
			return p, nil
		}
	}

	content := ""
	if stream != nil {
		content = stream.Content
	}
	return nil, &NoCompatibleFormatError{Content: content}
}

// PluginForExtension returns the first enabled video plugin that declares
// ext (with or without leading dot, any case) as compatible.
func PluginForExtension(r *plugin.Registry, ext string) Plugin {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, p := range Plugins(r, plugin.Enabled) {
		for _, candidate := range p.CompatibleFileExtensions() {
			if candidate == ext {
				return p
			}
		}
	}
	return nil
}
