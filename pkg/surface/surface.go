// Package surface defines the render surface a Video drives: the platform
// media element that decodes and presents frames. The player core only
// talks to it through the Surface interface.
package surface

import (
	"context"
	"errors"
)

// ErrAborted is reported by Play when the request was superseded by a
// source change or a pause. It is a benign race and is never surfaced.
var ErrAborted = errors.New("play request aborted")

// ErrNotAllowed is reported by Play when the platform refuses to start
// playback without a user gesture.
var ErrNotAllowed = errors.New("play request not allowed")

// Event names dispatched by a surface.
type Event string

const (
	EventLoadedData Event = "loadeddata"
	EventEnded      Event = "ended"
)

// ReadyState mirrors the platform readiness ladder.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// ReadyThreshold is the state at which duration and dimensions are accurate.
const ReadyThreshold = HaveCurrentData

// CanPlay is the platform answer to a media type support query.
type CanPlay string

const (
	CanPlayNo       CanPlay = ""
	CanPlayMaybe    CanPlay = "maybe"
	CanPlayProbably CanPlay = "probably"
)

// Playable reports whether the answer allows playback.
func (c CanPlay) Playable() bool {
	return c == CanPlayMaybe || c == CanPlayProbably
}

// ListenerID identifies a registered event listener.
type ListenerID uint64

// Surface is the media element owned exclusively by one Video.
type Surface interface {
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	HasAttribute(name string) bool

	// Source returns the bound media URL, empty when detached.
	Source() string
	SetSource(url string)

	Play(ctx context.Context) error
	Pause() error

	ReadyState() ReadyState
	CanPlayType(mimetype string) CanPlay

	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	Volume() float64
	SetVolume(v float64)
	Muted() bool
	SetMuted(muted bool)
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
	Paused() bool
	VideoWidth() int
	VideoHeight() int

	// AddEventListener registers fn for event. Listeners may be invoked
	// from any goroutine.
	AddEventListener(event Event, fn func()) ListenerID
	RemoveEventListener(event Event, id ListenerID)
}

// TypeProber answers media type support queries. Every Surface is one;
// format plugins use a probe to negotiate compatibility before any Video
// exists.
type TypeProber interface {
	CanPlayType(mimetype string) CanPlay
}
