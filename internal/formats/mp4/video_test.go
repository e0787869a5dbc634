package mp4

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediaplayer/internal/clock"
	"mediaplayer/internal/readiness"
	"mediaplayer/internal/resource"
	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
	"mediaplayer/pkg/video"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testManifestURL = "https://media.example.com/repository/video1/data.json"

func twoSourceStream() *video.StreamData {
	return &video.StreamData{
		Content: "presenter",
		Sources: map[string][]video.SourceDescriptor{
			"mp4": {
				{Src: "presenter_640.mp4", Mimetype: "video/mp4", Res: video.Resolution{W: 640, H: 360}},
				{Src: "presenter_1280.mp4", Mimetype: "video/mp4", Res: video.Resolution{W: 1280, H: 720}},
			},
		},
	}
}

func newTestVideo(t *testing.T, isMainAudio bool, opts ...surface.MemoryOption) (*Video, *surface.Memory) {
	t.Helper()
	s := surface.NewMemory(opts...)
	v := NewVideo(s, isMainAudio, plugin.Config{}, resource.NewResolver(testManifestURL), zap.NewNop())
	return v, s
}

func loadedVideo(t *testing.T, isMainAudio bool) (*Video, *surface.Memory) {
	t.Helper()
	v, s := newTestVideo(t, isMainAudio, surface.WithReadyOnSource())
	require.NoError(t, v.LoadStreamData(context.Background(), twoSourceStream()))
	return v, s
}

func TestLoadStreamData_SelectsHighestResolution(t *testing.T) {
	v, s := loadedVideo(t, true)

	sources := v.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, 640, sources[0].Resolution.W)
	assert.Equal(t, 1280, sources[1].Resolution.W)

	assert.Equal(t, 1, v.CurrentQuality())
	assert.Equal(t, "https://media.example.com/repository/video1/presenter_1280.mp4", s.Source())
	assert.True(t, v.Ready())
	assert.True(t, s.Paused(), "the surface is paused once ready")
}

func TestLoadStreamData_SortsAscendingAndStable(t *testing.T) {
	v, _ := newTestVideo(t, true, surface.WithReadyOnSource())
	stream := &video.StreamData{
		Content: "presentation",
		Sources: map[string][]video.SourceDescriptor{
			"mp4": {
				{Src: "a.mp4", Res: video.Resolution{W: 1920}},
				{Src: "b.mp4", Res: video.Resolution{W: 640}},
				{Src: "c.mp4", Res: video.Resolution{W: 1920}},
				{Src: "d.mp4", Res: video.Resolution{W: 320}},
			},
		},
	}

	require.NoError(t, v.LoadStreamData(context.Background(), stream))

	var order []string
	for _, src := range v.Sources() {
		order = append(order, src.Src)
	}
	assert.Equal(t, []string{"d.mp4", "b.mp4", "a.mp4", "c.mp4"}, order)
	assert.Equal(t, 3, v.CurrentQuality())
}

func TestLoadStreamData_NoSources(t *testing.T) {
	v, s := newTestVideo(t, true)
	stream := &video.StreamData{
		Content: "presenter",
		Sources: map[string][]video.SourceDescriptor{"hls": {{Src: "master.m3u8"}}},
	}

	err := v.LoadStreamData(context.Background(), stream)
	assert.ErrorIs(t, err, video.ErrNoSources)
	assert.Empty(t, s.Source())
}

func TestLoadStreamData_PropagatesPlatformFailure(t *testing.T) {
	v, s := newTestVideo(t, true, surface.WithReadyOnSource())
	failure := errors.New("network error")
	s.FailNextPlay(failure)

	err := v.LoadStreamData(context.Background(), twoSourceStream())
	assert.ErrorIs(t, err, failure)
}

func TestLoadStreamData_SwallowsInitialAbortAndAutoplayRefusal(t *testing.T) {
	for _, failure := range []error{surface.ErrAborted, surface.ErrNotAllowed} {
		v, s := newTestVideo(t, true, surface.WithReadyOnSource())
		s.FailNextPlay(failure)

		assert.NoError(t, v.LoadStreamData(context.Background(), twoSourceStream()))
		assert.True(t, v.Ready())
	}
}

func TestLoadStreamData_ReloadKeepsPinnedSource(t *testing.T) {
	v, s := loadedVideo(t, true)
	first := s.Source()

	v.ClearStreamData()
	other := &video.StreamData{
		Content: "other",
		Sources: map[string][]video.SourceDescriptor{"mp4": {{Src: "other.mp4", Res: video.Resolution{W: 3840}}}},
	}
	require.NoError(t, v.LoadStreamData(context.Background(), other))

	assert.Equal(t, first, s.Source())
	assert.Equal(t, "presenter", v.StreamData().Content)
}

func TestWaitForLoaded_ImmediateWhenReady(t *testing.T) {
	v, s := loadedVideo(t, true)

	require.NoError(t, v.WaitForLoaded(context.Background(), false))
	assert.Equal(t, 0, s.ListenerCount(surface.EventLoadedData), "no listener when already ready")
}

func TestTransportCallsQueueBehindSingleListener(t *testing.T) {
	v, s := newTestVideo(t, true,
		surface.WithMedia(surface.MediaInfo{Duration: 90, Width: 1920, Height: 1080}))
	ctx := context.Background()

	var wg sync.WaitGroup
	var duration float64
	var dims video.Dimensions
	errs := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		d, err := v.Duration(ctx)
		duration = d
		errs <- err
	}()
	go func() {
		defer wg.Done()
		d, err := v.Dimensions(ctx)
		dims = d
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := v.Volume(ctx)
		errs <- err
	}()

	require.Eventually(t, func() bool {
		return s.ListenerCount(surface.EventLoadedData) == 1
	}, time.Second, time.Millisecond)

	loadErr := make(chan error, 1)
	go func() { loadErr <- v.LoadStreamData(ctx, twoSourceStream()) }()

	require.Eventually(t, func() bool { return s.Source() != "" }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.ListenerCount(surface.EventLoadedData), "callers share one readiness listener")

	s.SetReadyState(surface.HaveEnoughData)

	wg.Wait()
	require.NoError(t, <-loadErr)
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, 90.0, duration)
	assert.Equal(t, video.Dimensions{W: 1920, H: 1080}, dims)
	assert.Equal(t, 0, s.ListenerCount(surface.EventLoadedData), "listener removed once ready")
}

func TestClearStreamData_CancelsPendingWait(t *testing.T) {
	v, s := newTestVideo(t, true)

	loadErr := make(chan error, 1)
	go func() { loadErr <- v.LoadStreamData(context.Background(), twoSourceStream()) }()

	require.Eventually(t, func() bool {
		return s.ListenerCount(surface.EventLoadedData) == 1
	}, time.Second, time.Millisecond)

	v.ClearStreamData()

	select {
	case err := <-loadErr:
		assert.ErrorIs(t, err, readiness.ErrCanceled)
	case <-time.After(time.Second):
		t.Fatal("pending load was not released by ClearStreamData")
	}

	assert.Empty(t, s.Source())
	assert.False(t, v.Ready())
	assert.Equal(t, 0, s.ListenerCount(surface.EventLoadedData))
	assert.Equal(t, 0, s.ListenerCount(surface.EventEnded))
}

func TestPlay_PendingWaitCanceledIsNotAnError(t *testing.T) {
	v, s := newTestVideo(t, true)

	playErr := make(chan error, 1)
	go func() { playErr <- v.Play(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.ListenerCount(surface.EventLoadedData) == 1
	}, time.Second, time.Millisecond)
	v.ClearStreamData()

	assert.NoError(t, <-playErr)
}

func TestPlay_SwallowsAbortOnly(t *testing.T) {
	v, s := loadedVideo(t, true)
	ctx := context.Background()

	s.FailNextPlay(surface.ErrAborted)
	assert.NoError(t, v.Play(ctx))

	decodeErr := errors.New("decode error")
	s.FailNextPlay(decodeErr)
	assert.ErrorIs(t, v.Play(ctx), decodeErr)

	require.NoError(t, v.Play(ctx))
	paused, err := v.Paused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, v.Pause(ctx))
	assert.True(t, s.Paused())
}

func TestDisable_MainAudioIsRefused(t *testing.T) {
	v, _ := loadedVideo(t, true)

	assert.True(t, v.Disable())
	assert.True(t, v.IsEnabled())
}

func TestDisable_ShadowWritesDoNotReachSurface(t *testing.T) {
	v, s := loadedVideo(t, false)
	ctx := context.Background()
	s.SetCurrentTime(10)
	s.ClearCalls()

	assert.False(t, v.Disable())

	got, err := v.SetCurrentTime(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	current, err := v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, current)
	assert.Equal(t, 10.0, s.CurrentTime())
	assert.Equal(t, 0, s.CallCount("SetCurrentTime"), "disabled writes must not touch the surface")

	v.Enable()
	current, err = v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, current)
}

func TestDisabled_AnswersFromSnapshot(t *testing.T) {
	v, s := loadedVideo(t, false)
	ctx := context.Background()
	s.SetVolume(0.8)
	s.SetPlaybackRate(1.25)

	v.Disable()

	// Real surface changes after the snapshot are invisible while disabled.
	s.SetVolume(0.1)
	s.SetPlaybackRate(2)
	require.NoError(t, s.Play(ctx))

	volume, err := v.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.8, volume)

	rate, err := v.PlaybackRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.25, rate)

	paused, err := v.Paused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	dims, err := v.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, video.Dimensions{W: 1280, H: 720}, dims)

	duration, err := v.Duration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60.0, duration)

	// Shadow setters update the snapshot.
	_, err = v.SetVolume(ctx, 0.3)
	require.NoError(t, err)
	_, err = v.SetPlaybackRate(ctx, 0.5)
	require.NoError(t, err)
	require.NoError(t, v.Play(ctx))

	volume, _ = v.Volume(ctx)
	rate, _ = v.PlaybackRate(ctx)
	paused, _ = v.Paused(ctx)
	assert.Equal(t, 0.3, volume)
	assert.Equal(t, 0.5, rate)
	assert.False(t, paused)
	assert.Equal(t, 0.1, s.Volume())
	assert.Equal(t, 2.0, s.PlaybackRate())

	state := v.ShadowState()
	assert.Equal(t, "shadowed", state.Mode)
	assert.False(t, state.Enabled)
	assert.Equal(t, "presenter", state.Metadata.Stream)
}

func TestDisabled_DoesNotWaitForReadiness(t *testing.T) {
	v, s := newTestVideo(t, false)
	v.Disable()

	current, err := v.CurrentTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, current)
	assert.Equal(t, 0, s.ListenerCount(surface.EventLoadedData))
}

func TestSetVolume_MuteFollowsZero(t *testing.T) {
	v, s := loadedVideo(t, true)
	ctx := context.Background()

	_, err := v.SetVolume(ctx, 0)
	require.NoError(t, err)
	assert.True(t, s.Muted())
	assert.True(t, s.HasAttribute("muted"))

	_, err = v.SetVolume(ctx, 0.5)
	require.NoError(t, err)
	assert.False(t, s.Muted())
	assert.False(t, s.HasAttribute("muted"))
	assert.Equal(t, 0.5, s.Volume())

	_, err = v.SetVolume(ctx, 0)
	require.NoError(t, err)
	assert.True(t, s.Muted())
}

func TestSecondaryVideoIsMutedByDefault(t *testing.T) {
	v, s := newTestVideo(t, false, surface.WithReadyOnSource())
	assert.True(t, s.Muted())
	assert.True(t, s.HasAttribute("muted"))

	s.SetMuted(false)
	require.NoError(t, v.LoadStreamData(context.Background(), twoSourceStream()))
	assert.True(t, s.Muted(), "reload mutes secondary streams again")

	main, mainSurface := newTestVideo(t, true)
	assert.False(t, mainSurface.Muted())
	assert.False(t, mainSurface.HasAttribute("muted"))
	assert.True(t, main.IsMainAudio())
}

func TestNewVideo_Attributes(t *testing.T) {
	tests := []struct {
		name        string
		config      plugin.Config
		wantCross   bool
		crossOrigin string
	}{
		{name: "default", config: plugin.Config{}, wantCross: true, crossOrigin: ""},
		{name: "anonymous", config: plugin.Config{"crossOrigin": "anonymous"}, wantCross: true, crossOrigin: "anonymous"},
		{name: "disabled", config: plugin.Config{"crossOrigin": false}, wantCross: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface.NewMemory()
			NewVideo(s, true, tt.config, nil, nil)

			assert.True(t, s.HasAttribute("playsinline"))
			assert.True(t, s.HasAttribute("autoplay"))
			value, ok := s.Attribute("crossorigin")
			assert.Equal(t, tt.wantCross, ok)
			if tt.wantCross {
				assert.Equal(t, tt.crossOrigin, value)
			}
		})
	}
}

func TestOnEnded(t *testing.T) {
	v, s := loadedVideo(t, true)

	ended := 0
	v.OnEnded(func() { ended++ })
	s.End()
	assert.Equal(t, 1, ended)

	v.ClearStreamData()
	s.End()
	assert.Equal(t, 1, ended, "ended listener is removed on unload")
}

func TestCurrentTimeSync(t *testing.T) {
	v, s := newTestVideo(t, true, surface.WithReadyOnSource())
	assert.Equal(t, -1.0, v.CurrentTimeSync())

	require.NoError(t, v.LoadStreamData(context.Background(), twoSourceStream()))
	s.SetCurrentTime(7)
	assert.Equal(t, 7.0, v.CurrentTimeSync())
}

func TestQualities_SingleLevel(t *testing.T) {
	v, _ := loadedVideo(t, true)
	ctx := context.Background()

	qualities, err := v.Qualities(ctx)
	require.NoError(t, err)
	assert.Nil(t, qualities)

	require.NoError(t, v.SetQuality(ctx, video.Quality{Index: 0}))
	assert.Equal(t, 1, v.CurrentQuality())
}

func TestClockDrivenBuffering(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	v, s := newTestVideo(t, true, surface.WithClock(clk, 2*time.Second))
	ctx := context.Background()

	loadErr := make(chan error, 1)
	go func() { loadErr <- v.LoadStreamData(ctx, twoSourceStream()) }()

	require.Eventually(t, func() bool {
		return s.ListenerCount(surface.EventLoadedData) == 1 && clk.Pending() == 1
	}, time.Second, time.Millisecond)
	assert.False(t, v.Ready())

	clk.Advance(2 * time.Second)
	require.NoError(t, <-loadErr)
	assert.True(t, v.Ready())

	require.NoError(t, v.Play(ctx))
	clk.Advance(5 * time.Second)

	current, err := v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, current, 0.001)
}

// lateLoadedData replays a loadeddata dispatch that was already in flight
// when the source is detached.
type lateLoadedData struct {
	*surface.Memory

	mu     sync.Mutex
	loaded func()
}

func (l *lateLoadedData) AddEventListener(event surface.Event, fn func()) surface.ListenerID {
	if event == surface.EventLoadedData {
		l.mu.Lock()
		l.loaded = fn
		l.mu.Unlock()
	}
	return l.Memory.AddEventListener(event, fn)
}

func (l *lateLoadedData) SetSource(url string) {
	l.mu.Lock()
	loaded := l.loaded
	l.mu.Unlock()

	if url == "" && loaded != nil {
		l.Memory.SetReadyState(surface.HaveEnoughData)
		loaded()
	}
	l.Memory.SetSource(url)
}

func TestClearStreamData_LateThresholdCrossingIsIgnored(t *testing.T) {
	s := &lateLoadedData{Memory: surface.NewMemory()}
	v := NewVideo(s, true, plugin.Config{}, nil, zap.NewNop())

	loadErr := make(chan error, 1)
	go func() { loadErr <- v.LoadStreamData(context.Background(), twoSourceStream()) }()

	require.Eventually(t, func() bool {
		return s.ListenerCount(surface.EventLoadedData) == 1
	}, time.Second, time.Millisecond)

	v.ClearStreamData()
	assert.ErrorIs(t, <-loadErr, readiness.ErrCanceled)

	assert.False(t, v.Ready(), "a crossing from the unloaded cycle must not mark the Video ready")
	assert.Empty(t, s.Source())
	assert.Equal(t, -1.0, v.CurrentTimeSync())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := v.Duration(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "transport calls wait for the next load")
}

func TestSetters_PendingWaitCanceledIsNotAnError(t *testing.T) {
	tests := []struct {
		name string
		set  func(ctx context.Context, v *Video) (float64, error)
		want float64
	}{
		{"current time", func(ctx context.Context, v *Video) (float64, error) { return v.SetCurrentTime(ctx, 12) }, 12},
		{"volume", func(ctx context.Context, v *Video) (float64, error) { return v.SetVolume(ctx, 0.4) }, 0.4},
		{"playback rate", func(ctx context.Context, v *Video) (float64, error) { return v.SetPlaybackRate(ctx, 1.5) }, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, s := newTestVideo(t, true)

			type result struct {
				value float64
				err   error
			}
			done := make(chan result, 1)
			go func() {
				value, err := tt.set(context.Background(), v)
				done <- result{value, err}
			}()

			require.Eventually(t, func() bool {
				return s.ListenerCount(surface.EventLoadedData) == 1
			}, time.Second, time.Millisecond)
			v.ClearStreamData()

			r := <-done
			assert.NoError(t, r.err)
			assert.Equal(t, tt.want, r.value)
		})
	}
}

func TestLoadStreamData_AppliesInitialVolume(t *testing.T) {
	ctx := context.Background()

	s := surface.NewMemory(surface.WithReadyOnSource())
	v := NewVideo(s, true, plugin.Config{"initialVolume": 0.3}, nil, zap.NewNop())
	require.NoError(t, v.LoadStreamData(ctx, twoSourceStream()))
	assert.Equal(t, 0.3, s.Volume())
	assert.False(t, s.Muted())

	_, err := v.SetVolume(ctx, 0.9)
	require.NoError(t, err)
	require.NoError(t, v.LoadStreamData(ctx, nil))
	assert.Equal(t, 0.3, s.Volume(), "reload re-applies the initial volume")

	silent := surface.NewMemory(surface.WithReadyOnSource())
	v = NewVideo(silent, true, plugin.Config{"initialVolume": 0}, nil, zap.NewNop())
	require.NoError(t, v.LoadStreamData(ctx, twoSourceStream()))
	assert.Equal(t, 0.0, silent.Volume())
	assert.True(t, silent.Muted(), "an initial volume of zero mutes")
}
