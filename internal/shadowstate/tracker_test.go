package shadowstate

import (
	"fmt"
	"sync"
	"testing"

	"mediaplayer/pkg/surface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	s := surface.NewMemory(surface.WithMedia(surface.MediaInfo{Duration: 120, Width: 1920, Height: 1080}))
	s.SetSource("video.mp4")
	s.SetReadyState(surface.HaveEnoughData)
	s.SetVolume(0.4)
	s.SetPlaybackRate(1.5)
	s.SetCurrentTime(33)

	props := Capture(s)

	assert.Equal(t, Properties{
		Duration:     120,
		Volume:       0.4,
		Width:        1920,
		Height:       1080,
		PlaybackRate: 1.5,
		Paused:       true,
		CurrentTime:  33,
	}, props)
}

func TestModeString(t *testing.T) {
	var m Mode = Engaged{}
	assert.Equal(t, "engaged", m.String())

	m = Shadowed{Props: &Properties{}}
	assert.Equal(t, "shadowed", m.String())
}

func TestTracker_RegisterAndGet(t *testing.T) {
	tracker := NewTracker()
	calls := 0
	tracker.Register("presenter", func() StreamShadowState {
		calls++
		return StreamShadowState{Mode: "engaged", Enabled: true, MainAudio: true}
	})

	state, ok := tracker.Get("presenter")
	require.True(t, ok)
	assert.Equal(t, "engaged", state.Mode)
	assert.True(t, state.MainAudio)
	assert.Equal(t, 1, calls, "provider is consulted on every read")

	_, ok = tracker.Get("presentation")
	assert.False(t, ok)
}

func TestTracker_UnregisterAndClear(t *testing.T) {
	tracker := NewTracker()
	tracker.Register("a", func() StreamShadowState { return StreamShadowState{} })
	tracker.Register("b", func() StreamShadowState { return StreamShadowState{} })
	assert.Equal(t, []string{"a", "b"}, tracker.Streams())

	tracker.Unregister("a")
	assert.Equal(t, []string{"b"}, tracker.Streams())

	tracker.Clear()
	assert.Empty(t, tracker.All())
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		name := fmt.Sprintf("stream-%d", i)
		go func() {
			defer wg.Done()
			tracker.Register(name, func() StreamShadowState { return StreamShadowState{Mode: "shadowed"} })
		}()
		go func() {
			defer wg.Done()
			_ = tracker.All()
		}()
	}
	wg.Wait()

	assert.Len(t, tracker.All(), 20)
}
