package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediaplayer/internal/clock"
)

// MediaInfo is the metadata a Memory surface reports once it reaches the
// readiness threshold.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
}

// Call records a mutating call made against a Memory surface.
type Call struct {
	Method string
	Value  interface{}
	Time   time.Time
}

type listenerEntry struct {
	id ListenerID
	fn func()
}

// Memory implements Surface in memory. Tests drive readiness and
// end-of-stream explicitly; with a clock attached it buffers on its own
// and advances the playhead while playing.
type Memory struct {
	mu         sync.Mutex
	attributes map[string]string
	src        string
	readyState ReadyState
	media      MediaInfo
	canPlay    map[string]CanPlay

	currentTime  float64
	volume       float64
	muted        bool
	playbackRate float64
	paused       bool

	listeners map[Event][]listenerEntry
	nextID    ListenerID

	playErrs []error
	calls    []Call

	autoReady   bool
	clk         clock.Clock
	bufferDelay time.Duration
	bufferTimer clock.Timer
	playingFrom time.Time
}

// MemoryOption configures a Memory surface.
type MemoryOption func(*Memory)

// WithMedia sets the metadata reported once ready.
func WithMedia(info MediaInfo) MemoryOption {
	return func(m *Memory) { m.media = info }
}

// WithCanPlay sets the answer returned for a media type.
func WithCanPlay(mimetype string, answer CanPlay) MemoryOption {
	return func(m *Memory) { m.canPlay[mimetype] = answer }
}

// WithClock makes the surface reach HaveEnoughData bufferDelay after each
// non-empty source assignment, and advance CurrentTime while playing.
func WithClock(clk clock.Clock, bufferDelay time.Duration) MemoryOption {
	return func(m *Memory) {
		m.clk = clk
		m.bufferDelay = bufferDelay
	}
}

// WithReadyOnSource makes the surface reach HaveEnoughData as soon as a
// non-empty source is assigned.
func WithReadyOnSource() MemoryOption {
	return func(m *Memory) { m.autoReady = true }
}

// NewMemory creates a detached, paused surface at full volume.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		attributes:   make(map[string]string),
		canPlay:      map[string]CanPlay{"video/mp4": CanPlayMaybe},
		volume:       1,
		playbackRate: 1,
		paused:       true,
		listeners:    make(map[Event][]listenerEntry),
		media:        MediaInfo{Duration: 60, Width: 1280, Height: 720},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) record(method string, value interface{}) {
	now := time.Now()
	if m.clk != nil {
		now = m.clk.Now()
	}
	m.calls = append(m.calls, Call{Method: method, Value: value, Time: now})
}

// SetAttribute implements Surface.
func (m *Memory) SetAttribute(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes[name] = value
	m.record("SetAttribute", name)
}

// RemoveAttribute implements Surface.
func (m *Memory) RemoveAttribute(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attributes, name)
	m.record("RemoveAttribute", name)
}

// HasAttribute implements Surface.
func (m *Memory) HasAttribute(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attributes[name]
	return ok
}

// Attribute returns the value of an attribute and whether it is set.
func (m *Memory) Attribute(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.attributes[name]
	return v, ok
}

// Source implements Surface.
func (m *Memory) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// SetSource implements Surface. Assigning a source resets readiness and
// the playhead.
func (m *Memory) SetSource(url string) {
	m.mu.Lock()
	m.src = url
	m.readyState = HaveNothing
	m.currentTime = 0
	m.playingFrom = time.Time{}
	m.record("SetSource", url)

	if m.bufferTimer != nil {
		m.bufferTimer.Stop()
		m.bufferTimer = nil
	}
	if url != "" && m.clk != nil {
		m.bufferTimer = m.clk.AfterFunc(m.bufferDelay, func() {
			m.SetReadyState(HaveEnoughData)
		})
	}
	autoReady := m.autoReady && url != ""
	m.mu.Unlock()

	if autoReady {
		m.SetReadyState(HaveEnoughData)
	}
}

// FailNextPlay queues an error for the next Play call.
func (m *Memory) FailNextPlay(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErrs = append(m.playErrs, err)
}

// Play implements Surface.
func (m *Memory) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Play", nil)
	if len(m.playErrs) > 0 {
		err := m.playErrs[0]
		m.playErrs = m.playErrs[1:]
		return err
	}
	if m.src == "" {
		return fmt.Errorf("no supported source: %w", ErrAborted)
	}
	if m.paused {
		m.paused = false
		m.startPlayheadLocked()
	}
	return nil
}

// Pause implements Surface.
func (m *Memory) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Pause", nil)
	if !m.paused {
		m.currentTime = m.playheadLocked()
		m.paused = true
		m.playingFrom = time.Time{}
	}
	return nil
}

func (m *Memory) startPlayheadLocked() {
	if m.clk != nil && m.readyState >= ReadyThreshold {
		m.playingFrom = m.clk.Now()
	}
}

// playheadLocked returns the current position, including time elapsed on
// the clock since playback started.
func (m *Memory) playheadLocked() float64 {
	t := m.currentTime
	if m.clk != nil && !m.paused && !m.playingFrom.IsZero() {
		t += m.clk.Since(m.playingFrom).Seconds() * m.playbackRate
	}
	if m.media.Duration > 0 && t > m.media.Duration {
		t = m.media.Duration
	}
	return t
}

// ReadyState implements Surface.
func (m *Memory) ReadyState() ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyState
}

// SetReadyState moves the surface along the readiness ladder. Crossing the
// readiness threshold with a source bound dispatches EventLoadedData.
func (m *Memory) SetReadyState(state ReadyState) {
	m.mu.Lock()
	crossed := m.readyState < ReadyThreshold && state >= ReadyThreshold && m.src != ""
	m.readyState = state
	if crossed && !m.paused {
		m.startPlayheadLocked()
	}
	m.mu.Unlock()

	if crossed {
		m.Emit(EventLoadedData)
	}
}

// End moves the playhead to the end, pauses, and dispatches EventEnded.
func (m *Memory) End() {
	m.mu.Lock()
	m.currentTime = m.media.Duration
	m.paused = true
	m.playingFrom = time.Time{}
	m.mu.Unlock()

	m.Emit(EventEnded)
}

// CanPlayType implements Surface.
func (m *Memory) CanPlayType(mimetype string) CanPlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canPlay[mimetype]
}

// CurrentTime implements Surface.
func (m *Memory) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playheadLocked()
}

// SetCurrentTime implements Surface.
func (m *Memory) SetCurrentTime(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
	if !m.playingFrom.IsZero() {
		m.playingFrom = m.clk.Now()
	}
	m.record("SetCurrentTime", t)
}

// Duration implements Surface. It reports zero until metadata is loaded.
func (m *Memory) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readyState < HaveMetadata {
		return 0
	}
	return m.media.Duration
}

// Volume implements Surface.
func (m *Memory) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetVolume implements Surface.
func (m *Memory) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
	m.record("SetVolume", v)
}

// Muted implements Surface.
func (m *Memory) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// SetMuted implements Surface.
func (m *Memory) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.record("SetMuted", muted)
}

// PlaybackRate implements Surface.
func (m *Memory) PlaybackRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playbackRate
}

// SetPlaybackRate implements Surface.
func (m *Memory) SetPlaybackRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.playheadLocked()
	if !m.playingFrom.IsZero() {
		m.playingFrom = m.clk.Now()
	}
	m.playbackRate = rate
	m.record("SetPlaybackRate", rate)
}

// Paused implements Surface.
func (m *Memory) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// VideoWidth implements Surface. It reports zero until metadata is loaded.
func (m *Memory) VideoWidth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readyState < HaveMetadata {
		return 0
	}
	return m.media.Width
}

// VideoHeight implements Surface. It reports zero until metadata is loaded.
func (m *Memory) VideoHeight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readyState < HaveMetadata {
		return 0
	}
	return m.media.Height
}

// AddEventListener implements Surface.
func (m *Memory) AddEventListener(event Event, fn func()) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[event] = append(m.listeners[event], listenerEntry{id: m.nextID, fn: fn})
	return m.nextID
}

// RemoveEventListener implements Surface.
func (m *Memory) RemoveEventListener(event Event, id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.listeners[event]
	for i, e := range entries {
		if e.id == id {
			m.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners registered for event.
func (m *Memory) ListenerCount(event Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[event])
}

// Emit dispatches event to its listeners outside the surface lock.
func (m *Memory) Emit(event Event) {
	m.mu.Lock()
	entries := make([]listenerEntry, len(m.listeners[event]))
	copy(entries, m.listeners[event])
	m.mu.Unlock()

	for _, e := range entries {
		e.fn()
	}
}

// Calls returns a copy of the recorded mutating calls.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns how many times method was called.
func (m *Memory) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ClearCalls forgets the recorded calls.
func (m *Memory) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
