package surface

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediaplayer/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Defaults(t *testing.T) {
	m := NewMemory()

	assert.True(t, m.Paused())
	assert.Equal(t, 1.0, m.Volume())
	assert.Equal(t, 1.0, m.PlaybackRate())
	assert.Equal(t, HaveNothing, m.ReadyState())
	assert.Equal(t, 0.0, m.Duration(), "no metadata before loading")
	assert.Equal(t, 0, m.VideoWidth())
	assert.Equal(t, CanPlayMaybe, m.CanPlayType("video/mp4"))
	assert.Equal(t, CanPlayNo, m.CanPlayType("video/ogg"))
	assert.False(t, CanPlayNo.Playable())
}

func TestMemory_LoadedDataFiresOnThreshold(t *testing.T) {
	m := NewMemory()
	fired := 0
	id := m.AddEventListener(EventLoadedData, func() { fired++ })

	// No source bound: nothing to announce.
	m.SetReadyState(HaveEnoughData)
	assert.Equal(t, 0, fired)

	m.SetSource("a.mp4")
	assert.Equal(t, HaveNothing, m.ReadyState())
	m.SetReadyState(HaveMetadata)
	assert.Equal(t, 0, fired)
	m.SetReadyState(HaveCurrentData)
	assert.Equal(t, 1, fired)
	m.SetReadyState(HaveEnoughData)
	assert.Equal(t, 1, fired, "only the crossing is announced")

	m.RemoveEventListener(EventLoadedData, id)
	assert.Equal(t, 0, m.ListenerCount(EventLoadedData))
}

func TestMemory_ReadyOnSource(t *testing.T) {
	m := NewMemory(WithReadyOnSource(), WithMedia(MediaInfo{Duration: 30, Width: 640, Height: 360}))
	fired := 0
	m.AddEventListener(EventLoadedData, func() { fired++ })

	m.SetSource("a.mp4")
	assert.Equal(t, HaveEnoughData, m.ReadyState())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 30.0, m.Duration())
	assert.Equal(t, 640, m.VideoWidth())
	assert.Equal(t, 360, m.VideoHeight())

	m.SetSource("")
	assert.Equal(t, HaveNothing, m.ReadyState())
}

func TestMemory_Play(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	assert.ErrorIs(t, m.Play(ctx), ErrAborted, "no source")

	m.SetSource("a.mp4")
	require.NoError(t, m.Play(ctx))
	assert.False(t, m.Paused())

	denied := errors.New("denied")
	m.FailNextPlay(denied)
	assert.ErrorIs(t, m.Play(ctx), denied)
	require.NoError(t, m.Play(ctx))

	require.NoError(t, m.Pause())
	assert.True(t, m.Paused())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Play(canceled), context.Canceled)
}

func TestMemory_End(t *testing.T) {
	m := NewMemory()
	ended := false
	m.AddEventListener(EventEnded, func() { ended = true })
	m.SetSource("a.mp4")
	require.NoError(t, m.Play(context.Background()))

	m.End()

	assert.True(t, ended)
	assert.True(t, m.Paused())
	assert.Equal(t, 60.0, m.CurrentTime())
}

func TestMemory_ClockBuffering(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	m := NewMemory(WithClock(clk, time.Second))
	ctx := context.Background()

	m.SetSource("a.mp4")
	assert.Equal(t, 1, clk.Pending())
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, HaveNothing, m.ReadyState())
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, HaveEnoughData, m.ReadyState())

	require.NoError(t, m.Play(ctx))
	clk.Advance(4 * time.Second)
	assert.InDelta(t, 4.0, m.CurrentTime(), 0.001)

	m.SetPlaybackRate(2)
	clk.Advance(time.Second)
	assert.InDelta(t, 6.0, m.CurrentTime(), 0.001)

	require.NoError(t, m.Pause())
	clk.Advance(10 * time.Second)
	assert.InDelta(t, 6.0, m.CurrentTime(), 0.001)

	// Reassigning the source restarts buffering.
	m.SetSource("b.mp4")
	m.SetSource("c.mp4")
	assert.Equal(t, 1, clk.Pending())
}

func TestMemory_CallLog(t *testing.T) {
	m := NewMemory()
	m.SetAttribute("muted", "")
	m.SetMuted(true)
	m.SetVolume(0.5)
	m.SetVolume(0.7)
	m.RemoveAttribute("muted")

	assert.Equal(t, 2, m.CallCount("SetVolume"))
	assert.Len(t, m.Calls(), 5)
	assert.False(t, m.HasAttribute("muted"))

	m.ClearCalls()
	assert.Empty(t, m.Calls())
}
