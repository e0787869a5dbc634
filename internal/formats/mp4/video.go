package mp4

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediaplayer/internal/readiness"
	"mediaplayer/internal/shadowstate"
	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
	"mediaplayer/pkg/video"

	"go.uber.org/zap"
)

// Video plays one mp4 stream on a render surface.
//
// Readiness: every load cycle owns one readiness.Gate. All transport calls
// issued before the surface crosses surface.ReadyThreshold wait on that
// gate behind a single loadeddata listener. ClearStreamData cancels the
// gate so no caller stays blocked on an unloaded stream.
//
// Disable: a disabled Video answers from a shadow snapshot and never
// touches the surface. Writes made while disabled stay in the snapshot.
type Video struct {
	logger      *zap.Logger
	surface     surface.Surface
	resolver    plugin.ResourceResolver
	isMainAudio bool

	// initialVolume is re-applied on every load when configured
	initialVolume *float64

	mu             sync.Mutex
	stream         *video.StreamData
	sources        []video.Source
	currentQuality int
	currentSource  *video.Source
	enabled        bool
	snapshot       shadowstate.Properties
	capturedAt     time.Time

	ready         bool
	gate          *readiness.Gate
	pauseOnReady  bool
	readyListener surface.ListenerID
	listening     bool

	endedListener surface.ListenerID
	endedAttached bool
	onEnded       func()
}

// NewVideo prepares s for inline autoplay. A Video that is not the main
// audio source starts muted so autoplaying secondary streams stay silent.
func NewVideo(s surface.Surface, isMainAudio bool, config plugin.Config, resolver plugin.ResourceResolver, logger *zap.Logger) *Video {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = plugin.Config{}
	}

	s.SetAttribute("playsinline", "")
	if crossOrigin, isBool := config["crossOrigin"].(bool); !isBool || crossOrigin {
		s.SetAttribute("crossorigin", config.String("crossOrigin", ""))
	}
	s.SetAttribute("autoplay", "")
	if !isMainAudio {
		s.SetAttribute("muted", "")
		s.SetMuted(true)
	}

	v := &Video{
		logger:      logger,
		surface:     s,
		resolver:    resolver,
		isMainAudio: isMainAudio,
		enabled:     true,
		gate:        readiness.NewGate(),
	}
	if config.Has("initialVolume") {
		vol := config.Float("initialVolume", 1)
		v.initialVolume = &vol
	}
	return v
}

// mode returns where the next transport call lands.
func (v *Video) mode() shadowstate.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.enabled {
		return shadowstate.Engaged{Surface: v.surface}
	}
	return shadowstate.Shadowed{Props: &v.snapshot}
}

// withShadow runs fn on the snapshot under the Video lock.
func (v *Video) withShadow(fn func(p *shadowstate.Properties)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.snapshot)
}

// isTransient reports errors that come from superseded requests: a play
// aborted by a source change, or a wait canceled by an unload.
func isTransient(err error) bool {
	return errors.Is(err, surface.ErrAborted) || errors.Is(err, readiness.ErrCanceled)
}

// LoadStreamData binds the surface to the selected source and blocks until
// the surface is ready. The first call picks the highest-resolution mp4
// source; later calls keep the pinned source.
func (v *Video) LoadStreamData(ctx context.Context, stream *video.StreamData) error {
	v.mu.Lock()
	if v.stream == nil {
		v.stream = stream
	}
	if v.currentSource == nil {
		descriptors := v.stream.SourcesFor(StreamType)
		if len(descriptors) == 0 {
			v.mu.Unlock()
			return video.ErrNoSources
		}

		sources := make([]video.Source, 0, len(descriptors))
		for _, d := range descriptors {
			sources = append(sources, video.Source{
				URL:        v.resolve(d.Src),
				Src:        d.Src,
				Mimetype:   d.Mimetype,
				Resolution: d.Res,
			})
		}
		sort.SliceStable(sources, func(i, j int) bool {
			return sources[i].Resolution.W < sources[j].Resolution.W
		})

		v.sources = sources
		v.currentQuality = len(sources) - 1
		v.currentSource = &v.sources[v.currentQuality]
	}

	// A reload starts a fresh readiness cycle; a pending one keeps its waiters.
	if v.gate.Settled() {
		v.gate = readiness.NewGate()
		v.ready = false
	}
	url := v.currentSource.URL
	content := v.stream.Content
	v.mu.Unlock()

	v.logger.Debug("Loading stream data",
		zap.String("content", content),
		zap.String("src", url))

	if !v.isMainAudio {
		v.surface.SetMuted(true)
	}
	if v.initialVolume != nil {
		v.surface.SetVolume(*v.initialVolume)
		if *v.initialVolume == 0 {
			v.surface.SetMuted(true)
		}
	}
	v.surface.SetSource(url)
	v.attachEndedListener()

	// Some platforms do not advance the ready state until playback starts.
	if err := v.surface.Play(ctx); err != nil {
		if !isTransient(err) && !errors.Is(err, surface.ErrNotAllowed) {
			return fmt.Errorf("failed to start %s: %w", url, err)
		}
		v.logger.Debug("Initial play request superseded",
			zap.String("content", content),
			zap.Error(err))
	}

	if err := v.WaitForLoaded(ctx, true); err != nil {
		return fmt.Errorf("failed waiting for %s: %w", url, err)
	}

	v.logger.Info("Video loaded and ready", zap.String("content", content))
	v.SaveDisabledProperties()
	return nil
}

func (v *Video) resolve(src string) string {
	if v.resolver == nil {
		return src
	}
	return v.resolver.Resolve(src)
}

func (v *Video) attachEndedListener() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.endedAttached {
		return
	}
	v.endedListener = v.surface.AddEventListener(surface.EventEnded, v.handleEnded)
	v.endedAttached = true
}

func (v *Video) handleEnded() {
	v.mu.Lock()
	fn := v.onEnded
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// OnEnded implements video.Video.
func (v *Video) OnEnded(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onEnded = fn
}

// ClearStreamData detaches the source, drops both listeners, and cancels
// any pending readiness wait. A threshold crossing still in flight belongs
// to the canceled cycle and cannot mark the next one ready.
func (v *Video) ClearStreamData() {
	v.mu.Lock()
	gate := v.gate
	v.gate = readiness.NewGate()
	v.ready = false
	v.pauseOnReady = false

	if v.listening {
		v.surface.RemoveEventListener(surface.EventLoadedData, v.readyListener)
		v.listening = false
	}
	if v.endedAttached {
		v.surface.RemoveEventListener(surface.EventEnded, v.endedListener)
		v.endedAttached = false
	}
	v.mu.Unlock()

	v.surface.SetSource("")

	if gate.Cancel(nil) {
		v.logger.Debug("Pending readiness wait canceled by unload")
	}
}

// WaitForLoaded resolves once the surface crosses the readiness threshold.
// It returns at once, without registering a listener, when the surface is
// already ready. pauseAfterReady pauses the surface as soon as it is ready.
func (v *Video) WaitForLoaded(ctx context.Context, pauseAfterReady bool) error {
	v.mu.Lock()
	gate := v.gate
	if v.ready {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	if v.surface.ReadyState() >= surface.ReadyThreshold {
		if pauseAfterReady {
			v.pauseSurface()
		}
		v.markReady(gate)
		return gate.Wait(ctx)
	}

	v.mu.Lock()
	if gate != v.gate {
		// Unloaded in between: gate is already canceled.
		v.mu.Unlock()
		return gate.Wait(ctx)
	}
	if v.ready {
		v.mu.Unlock()
		return nil
	}
	if pauseAfterReady {
		v.pauseOnReady = true
	}
	if !v.listening {
		v.readyListener = v.surface.AddEventListener(surface.EventLoadedData, func() {
			v.handleLoadedData(gate)
		})
		v.listening = true
	}
	v.mu.Unlock()

	// The threshold may have been crossed before the listener was installed.
	if v.surface.ReadyState() >= surface.ReadyThreshold {
		v.markReady(gate)
	}

	return gate.Wait(ctx)
}

func (v *Video) handleLoadedData(gate *readiness.Gate) {
	if v.surface.ReadyState() >= surface.ReadyThreshold {
		v.markReady(gate)
	}
}

// markReady settles the load cycle owned by gate exactly once. It does
// nothing when gate is no longer the current cycle.
func (v *Video) markReady(gate *readiness.Gate) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ready || gate != v.gate {
		return
	}
	v.ready = true
	if v.listening {
		v.surface.RemoveEventListener(surface.EventLoadedData, v.readyListener)
		v.listening = false
	}
	if v.pauseOnReady {
		v.pauseOnReady = false
		v.pauseSurface()
	}
	gate.Resolve()
}

func (v *Video) pauseSurface() {
	if err := v.surface.Pause(); err != nil {
		v.logger.Debug("Pause after ready failed", zap.Error(err))
	}
}

// SaveDisabledProperties snapshots the surface into the shadow state.
func (v *Video) SaveDisabledProperties() {
	props := shadowstate.Capture(v.surface)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = props
	v.capturedAt = time.Now()
}

// Play implements video.Video. Superseded play requests are not errors.
func (v *Video) Play(ctx context.Context) error {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		v.withShadow(func(p *shadowstate.Properties) { p.Paused = false })
		return nil
	case shadowstate.Engaged:
		err := v.WaitForLoaded(ctx, false)
		if err == nil {
			err = m.Surface.Play(ctx)
		}
		if err != nil && isTransient(err) {
			v.logger.Debug("Play request superseded", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// Pause implements video.Video.
func (v *Video) Pause(ctx context.Context) error {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		v.withShadow(func(p *shadowstate.Properties) { p.Paused = true })
		return nil
	case shadowstate.Engaged:
		err := v.WaitForLoaded(ctx, false)
		if err == nil {
			err = m.Surface.Pause()
		}
		if err != nil && isTransient(err) {
			v.logger.Debug("Pause request superseded", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// Duration implements video.Video.
func (v *Video) Duration(ctx context.Context) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var d float64
		v.withShadow(func(p *shadowstate.Properties) { d = p.Duration })
		return d, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return 0, err
		}
		return m.Surface.Duration(), nil
	}
	return 0, nil
}

// CurrentTimeSync implements video.Video.
func (v *Video) CurrentTimeSync() float64 {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var t float64
		v.withShadow(func(p *shadowstate.Properties) { t = p.CurrentTime })
		return t
	case shadowstate.Engaged:
		if !v.Ready() {
			return -1
		}
		return m.Surface.CurrentTime()
	}
	return -1
}

// CurrentTime implements video.Video.
func (v *Video) CurrentTime(ctx context.Context) (float64, error) {
	switch v.mode().(type) {
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return 0, err
		}
	}
	return v.CurrentTimeSync(), nil
}

// superseded turns a setter wait canceled by an unload into a no-op that
// reports the requested value.
func (v *Video) superseded(requested float64, err error) (float64, error) {
	if isTransient(err) {
		v.logger.Debug("Setter superseded", zap.Error(err))
		return requested, nil
	}
	return 0, err
}

// SetCurrentTime implements video.Video.
func (v *Video) SetCurrentTime(ctx context.Context, t float64) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		v.withShadow(func(p *shadowstate.Properties) { p.CurrentTime = t })
		return t, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return v.superseded(t, err)
		}
		m.Surface.SetCurrentTime(t)
		return t, nil
	}
	return t, nil
}

// Volume implements video.Video.
func (v *Video) Volume(ctx context.Context) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var vol float64
		v.withShadow(func(p *shadowstate.Properties) { vol = p.Volume })
		return vol, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return 0, err
		}
		return m.Surface.Volume(), nil
	}
	return 0, nil
}

// SetVolume implements video.Video. Zero mutes the surface; any other
// value unmutes it.
func (v *Video) SetVolume(ctx context.Context, vol float64) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		v.withShadow(func(p *shadowstate.Properties) { p.Volume = vol })
		return vol, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return v.superseded(vol, err)
		}
		if vol == 0 {
			m.Surface.SetAttribute("muted", "")
			m.Surface.SetMuted(true)
		} else {
			m.Surface.RemoveAttribute("muted")
			m.Surface.SetMuted(false)
		}
		m.Surface.SetVolume(vol)
		return vol, nil
	}
	return vol, nil
}

// Paused implements video.Video.
func (v *Video) Paused(ctx context.Context) (bool, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var paused bool
		v.withShadow(func(p *shadowstate.Properties) { paused = p.Paused })
		return paused, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return false, err
		}
		return m.Surface.Paused(), nil
	}
	return true, nil
}

// PlaybackRate implements video.Video.
func (v *Video) PlaybackRate(ctx context.Context) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var rate float64
		v.withShadow(func(p *shadowstate.Properties) { rate = p.PlaybackRate })
		return rate, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return 0, err
		}
		return m.Surface.PlaybackRate(), nil
	}
	return 0, nil
}

// SetPlaybackRate implements video.Video.
func (v *Video) SetPlaybackRate(ctx context.Context, rate float64) (float64, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		v.withShadow(func(p *shadowstate.Properties) { p.PlaybackRate = rate })
		return rate, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return v.superseded(rate, err)
		}
		m.Surface.SetPlaybackRate(rate)
		return rate, nil
	}
	return rate, nil
}

// Dimensions implements video.Video.
func (v *Video) Dimensions(ctx context.Context) (video.Dimensions, error) {
	switch m := v.mode().(type) {
	case shadowstate.Shadowed:
		var d video.Dimensions
		v.withShadow(func(p *shadowstate.Properties) { d = video.Dimensions{W: p.Width, H: p.Height} })
		return d, nil
	case shadowstate.Engaged:
		if err := v.WaitForLoaded(ctx, false); err != nil {
			return video.Dimensions{}, err
		}
		return video.Dimensions{W: m.Surface.VideoWidth(), H: m.Surface.VideoHeight()}, nil
	}
	return video.Dimensions{}, nil
}

// Qualities returns nil: mp4 streams expose a single quality level.
func (v *Video) Qualities(context.Context) ([]video.Quality, error) {
	return nil, nil
}

// SetQuality is a no-op for the single-quality mp4 format.
func (v *Video) SetQuality(context.Context, video.Quality) error {
	return nil
}

// CurrentQuality returns the index of the playing source in Sources.
func (v *Video) CurrentQuality() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentQuality
}

// Sources returns the sources sorted by ascending width.
func (v *Video) Sources() []video.Source {
	v.mu.Lock()
	defer v.mu.Unlock()

	result := make([]video.Source, len(v.sources))
	copy(result, v.sources)
	return result
}

// Enable reconnects transport calls to the surface.
func (v *Video) Enable() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = true
}

// Disable switches transport calls to the shadow snapshot, refreshed from
// the surface when it is ready. The main audio Video refuses.
func (v *Video) Disable() bool {
	if v.isMainAudio {
		v.logger.Debug("Video not disabled because it is the main audio source")
		return v.IsEnabled()
	}

	if v.Ready() && v.IsEnabled() {
		v.SaveDisabledProperties()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = false
	return v.enabled
}

// IsEnabled implements video.Video.
func (v *Video) IsEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// IsMainAudio implements video.Video.
func (v *Video) IsMainAudio() bool {
	return v.isMainAudio
}

// Ready implements video.Video.
func (v *Video) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

// StreamData implements video.Video.
func (v *Video) StreamData() *video.StreamData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream
}

// GetShadowState implements plugin.ShadowStateProvider.
func (v *Video) GetShadowState() interface{} {
	return v.ShadowState()
}

// ShadowState returns the observable shadow state of the Video.
func (v *Video) ShadowState() shadowstate.StreamShadowState {
	m := v.mode()

	v.mu.Lock()
	defer v.mu.Unlock()

	content := ""
	if v.stream != nil {
		content = v.stream.Content
	}
	return shadowstate.StreamShadowState{
		Mode:       m.String(),
		Enabled:    v.enabled,
		MainAudio:  v.isMainAudio,
		Properties: v.snapshot,
		Metadata: shadowstate.StateMetadata{
			CapturedAt: v.capturedAt,
			Stream:     content,
		},
	}
}
