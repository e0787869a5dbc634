// Package player hosts a multi-stream playback session: it selects a video
// format per manifest stream, binds each stream to a render surface and fans
// transport commands out to every Video.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mediaplayer/internal/shadowstate"
	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
	"mediaplayer/pkg/video"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	// ErrNotLoaded is returned by transport calls before Load succeeds.
	ErrNotLoaded = errors.New("no manifest loaded")

	// ErrStreamNotFound is returned for an unknown stream name.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrDuplicateStream is returned when two manifest streams share a name.
	ErrDuplicateStream = errors.New("duplicate stream name")
)

// SurfaceProvider creates the render surface for a stream.
type SurfaceProvider interface {
	NewSurface(content string) (surface.Surface, error)
}

// SurfaceProviderFunc adapts a function to SurfaceProvider.
type SurfaceProviderFunc func(content string) (surface.Surface, error)

// NewSurface implements SurfaceProvider.
func (f SurfaceProviderFunc) NewSurface(content string) (surface.Surface, error) {
	return f(content)
}

// shadowed is implemented by Videos that expose their shadow snapshot.
type shadowed interface {
	ShadowState() shadowstate.StreamShadowState
}

// Stream is one loaded manifest stream.
type Stream struct {
	Content   string
	Plugin    video.Plugin
	Video     video.Video
	Surface   surface.Surface
	MainAudio bool
}

// Player owns the Videos of one session.
type Player struct {
	logger   *zap.Logger
	registry *plugin.Registry
	surfaces SurfaceProvider
	tracker  *shadowstate.Tracker

	mu       sync.RWMutex
	manifest *video.Manifest
	streams  []*Stream
	main     *Stream
	onEnded  func()
}

// NewPlayer creates a player that selects formats from registry.
func NewPlayer(registry *plugin.Registry, surfaces SurfaceProvider, tracker *shadowstate.Tracker, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = shadowstate.NewTracker()
	}
	return &Player{
		logger:   logger.Named("player"),
		registry: registry,
		surfaces: surfaces,
		tracker:  tracker,
	}
}

// mainAudioIndex returns the stream marked as main audio, or the first one.
func mainAudioIndex(streams []video.StreamData) int {
	_, idx, found := lo.FindIndexOf(streams, func(s video.StreamData) bool {
		return s.IsMainAudio()
	})
	if !found {
		return 0
	}
	return idx
}

// Load builds one Video per manifest stream and waits for all of them to
// become ready. Stream names and formats are checked for every stream
// before any surface or Video is created. A previously loaded manifest is
// unloaded first. If any stream fails, everything built so far is unloaded
// again.
func (p *Player) Load(ctx context.Context, m *video.Manifest) error {
	if m == nil || len(m.Streams) == 0 {
		return fmt.Errorf("manifest has no streams")
	}

	dups := lo.FindDuplicatesBy(m.Streams, func(s video.StreamData) string { return s.Content })
	if len(dups) > 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateStream, dups[0].Content)
	}

	formats := make([]video.Plugin, len(m.Streams))
	for i := range m.Streams {
		format, err := video.SelectPlugin(p.registry, &m.Streams[i])
		if err != nil {
			return err
		}
		formats[i] = format
	}

	if p.IsLoaded() {
		p.Unload()
	}

	mainIdx := mainAudioIndex(m.Streams)
	streams := make([]*Stream, 0, len(m.Streams))
	for i, format := range formats {
		data := &m.Streams[i]

		s, err := p.surfaces.NewSurface(data.Content)
		if err != nil {
			return fmt.Errorf("failed to create surface for %s: %w", data.Content, err)
		}

		v, err := format.NewVideo(s, i == mainIdx)
		if err != nil {
			return fmt.Errorf("failed to create video for %s: %w", data.Content, err)
		}

		p.logger.Debug("Video format selected",
			zap.String("stream", data.Content),
			zap.String("plugin", format.Name()),
			zap.Bool("main_audio", i == mainIdx))

		streams = append(streams, &Stream{
			Content:   data.Content,
			Plugin:    format,
			Video:     v,
			Surface:   s,
			MainAudio: i == mainIdx,
		})
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		loadErrs []error
	)
	for i, st := range streams {
		wg.Add(1)
		go func(st *Stream, data *video.StreamData) {
			defer wg.Done()
			if err := st.Video.LoadStreamData(ctx, data); err != nil {
				errMu.Lock()
				loadErrs = append(loadErrs, fmt.Errorf("%s: %w", st.Content, err))
				errMu.Unlock()
			}
		}(st, &m.Streams[i])
	}
	wg.Wait()

	if len(loadErrs) > 0 {
		for _, st := range streams {
			st.Video.ClearStreamData()
		}
		return fmt.Errorf("failed to load %d streams: %w", len(loadErrs), errors.Join(loadErrs...))
	}

	p.mu.Lock()
	p.manifest = m
	p.streams = streams
	p.main = streams[mainIdx]
	p.mu.Unlock()

	for _, st := range streams {
		if sv, ok := st.Video.(shadowed); ok {
			p.tracker.Register(st.Content, sv.ShadowState)
		}
	}
	streams[mainIdx].Video.OnEnded(p.handleEnded)

	p.logger.Info("Manifest loaded",
		zap.Int("streams", len(streams)),
		zap.String("main_audio", streams[mainIdx].Content))
	return nil
}

func (p *Player) handleEnded() {
	p.logger.Info("Playback ended")

	p.mu.RLock()
	fn := p.onEnded
	p.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// OnEnded installs the callback run when the main audio stream ends.
func (p *Player) OnEnded(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

// Unload clears every Video and forgets the manifest.
func (p *Player) Unload() {
	p.mu.Lock()
	streams := p.streams
	p.streams = nil
	p.main = nil
	p.manifest = nil
	p.mu.Unlock()

	for _, st := range streams {
		st.Video.ClearStreamData()
	}
	p.tracker.Clear()

	if len(streams) > 0 {
		p.logger.Info("Manifest unloaded", zap.Int("streams", len(streams)))
	}
}

// IsLoaded reports whether a manifest is loaded.
func (p *Player) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.main != nil
}

// Manifest returns the loaded manifest, or nil.
func (p *Player) Manifest() *video.Manifest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.manifest
}

// Streams returns the loaded streams in manifest order.
func (p *Player) Streams() []*Stream {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*Stream, len(p.streams))
	copy(result, p.streams)
	return result
}

// Stream returns the stream named content.
func (p *Player) Stream(content string) (*Stream, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, st := range p.streams {
		if st.Content == content {
			return st, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", content, ErrStreamNotFound)
}

// MainAudio returns the main audio stream, or nil before Load.
func (p *Player) MainAudio() *Stream {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.main
}

// StreamNames implements plugin.Controller. The main audio stream is first.
func (p *Player) StreamNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.main == nil {
		return nil
	}
	names := []string{p.main.Content}
	for _, st := range p.streams {
		if st != p.main {
			names = append(names, st.Content)
		}
	}
	return names
}

// MainAudioStream implements plugin.Controller.
func (p *Player) MainAudioStream() string {
	if main := p.MainAudio(); main != nil {
		return main.Content
	}
	return ""
}

func (p *Player) mainVideo() (video.Video, error) {
	main := p.MainAudio()
	if main == nil {
		return nil, ErrNotLoaded
	}
	return main.Video, nil
}

// each runs fn on every Video and joins the failures.
func (p *Player) each(op string, fn func(st *Stream) error) error {
	streams := p.Streams()
	if len(streams) == 0 {
		return ErrNotLoaded
	}

	var errs []error
	for _, st := range streams {
		if err := fn(st); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Content, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s failed on %d streams: %w", op, len(errs), errors.Join(errs...))
	}
	return nil
}

// Play implements plugin.Controller.
func (p *Player) Play(ctx context.Context) error {
	return p.each("play", func(st *Stream) error { return st.Video.Play(ctx) })
}

// Pause implements plugin.Controller.
func (p *Player) Pause(ctx context.Context) error {
	return p.each("pause", func(st *Stream) error { return st.Video.Pause(ctx) })
}

// SetCurrentTime seeks every stream to t.
func (p *Player) SetCurrentTime(ctx context.Context, t float64) error {
	return p.each("seek", func(st *Stream) error {
		_, err := st.Video.SetCurrentTime(ctx, t)
		return err
	})
}

// SetPlaybackRate applies rate to every stream.
func (p *Player) SetPlaybackRate(ctx context.Context, rate float64) error {
	return p.each("set playback rate", func(st *Stream) error {
		_, err := st.Video.SetPlaybackRate(ctx, rate)
		return err
	})
}

// SetVolume applies v to the main audio stream only; secondary streams stay
// muted.
func (p *Player) SetVolume(ctx context.Context, v float64) error {
	main, err := p.mainVideo()
	if err != nil {
		return err
	}
	_, err = main.SetVolume(ctx, v)
	return err
}

// CurrentTime returns the main audio position.
func (p *Player) CurrentTime(ctx context.Context) (float64, error) {
	main, err := p.mainVideo()
	if err != nil {
		return 0, err
	}
	return main.CurrentTime(ctx)
}

// Duration returns the main audio duration.
func (p *Player) Duration(ctx context.Context) (float64, error) {
	main, err := p.mainVideo()
	if err != nil {
		return 0, err
	}
	return main.Duration(ctx)
}

// Paused implements plugin.Controller.
func (p *Player) Paused(ctx context.Context) (bool, error) {
	main, err := p.mainVideo()
	if err != nil {
		return true, err
	}
	return main.Paused(ctx)
}

// Volume returns the main audio volume.
func (p *Player) Volume(ctx context.Context) (float64, error) {
	main, err := p.mainVideo()
	if err != nil {
		return 0, err
	}
	return main.Volume(ctx)
}

// PlaybackRate returns the main audio playback rate.
func (p *Player) PlaybackRate(ctx context.Context) (float64, error) {
	main, err := p.mainVideo()
	if err != nil {
		return 0, err
	}
	return main.PlaybackRate(ctx)
}

// EnableStream reconnects a stream to its surface.
func (p *Player) EnableStream(content string) error {
	st, err := p.Stream(content)
	if err != nil {
		return err
	}
	st.Video.Enable()
	p.logger.Info("Stream enabled", zap.String("stream", content))
	return nil
}

// DisableStream switches a stream to its shadow snapshot. The main audio
// stream refuses; the result is the stream's enabled flag afterwards.
func (p *Player) DisableStream(content string) (bool, error) {
	st, err := p.Stream(content)
	if err != nil {
		return false, err
	}
	enabled := st.Video.Disable()
	p.logger.Info("Stream disable requested",
		zap.String("stream", content),
		zap.Bool("enabled", enabled))
	return enabled, nil
}

// StreamEnabled implements plugin.Controller. Unknown streams report false.
func (p *Player) StreamEnabled(content string) bool {
	st, err := p.Stream(content)
	if err != nil {
		return false
	}
	return st.Video.IsEnabled()
}
