// Package mp4 implements the progressive-download MP4 video format: a
// single-quality format that plays the highest-resolution mp4 source of a
// stream on the platform's native media element.
package mp4

import (
	"regexp"

	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
	"mediaplayer/pkg/video"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// PluginName is the registered name of the format.
	PluginName = "es.upv.paella.mp4VideoFormat"

	// StreamType is the manifest source key the format reads.
	StreamType = "mp4"

	mimetypeMP4 = "video/mp4"
)

var mp4Mimetype = regexp.MustCompile(`(?i)video/mp4`)

// Plugin is the mp4 video format plugin.
type Plugin struct {
	*plugin.Base

	logger   *zap.Logger
	resolver plugin.ResourceResolver
	prober   surface.TypeProber
}

// NewPlugin creates the format. A nil prober accepts any mp4 mimetype.
func NewPlugin(config plugin.Config, resolver plugin.ResourceResolver, prober surface.TypeProber, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{
		Base:     plugin.NewBase(PluginName, config),
		logger:   logger.Named("mp4"),
		resolver: resolver,
		prober:   prober,
	}
}

// Type implements plugin.Plugin.
func (p *Plugin) Type() plugin.Type { return plugin.TypeVideo }

// StreamType implements video.Plugin.
func (p *Plugin) StreamType() string { return StreamType }

// IsCompatible accepts streams with a non-empty mp4 source list whose first
// entry has a mimetype the platform can play.
func (p *Plugin) IsCompatible(stream *video.StreamData) bool {
	sources := stream.SourcesFor(StreamType)
	if len(sources) == 0 {
		return false
	}
	return p.supportsVideoType(sources[0].Mimetype)
}

// supportsVideoType asks the platform about mimetype. Parameterised mp4
// types (codecs=...) the platform rejects fall back to plain video/mp4.
func (p *Plugin) supportsVideoType(mimetype string) bool {
	if mimetype == "" {
		return false
	}
	if p.prober == nil {
		return mp4Mimetype.MatchString(mimetype)
	}
	if p.prober.CanPlayType(mimetype).Playable() {
		return true
	}
	if mp4Mimetype.MatchString(mimetype) {
		return p.prober.CanPlayType(mimetypeMP4).Playable()
	}
	return false
}

// CompatibleFileExtensions implements video.Plugin.
func (p *Plugin) CompatibleFileExtensions() []string {
	return []string{"m4v", "mp4"}
}

// ManifestData implements video.Plugin.
func (p *Plugin) ManifestData(fileURLs []string) map[string][]video.SourceDescriptor {
	return map[string][]video.SourceDescriptor{
		StreamType: lo.Map(fileURLs, func(url string, _ int) video.SourceDescriptor {
			return video.SourceDescriptor{Src: url, Mimetype: mimetypeMP4}
		}),
	}
}

// NewVideo implements video.Plugin.
func (p *Plugin) NewVideo(s surface.Surface, isMainAudio bool) (video.Video, error) {
	return NewVideo(s, isMainAudio, p.Config(), p.resolver, p.logger), nil
}
