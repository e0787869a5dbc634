// Package shadowstate holds the playback snapshot a disabled Video answers
// from, and a tracker that exposes every stream's snapshot for observability.
package shadowstate

import (
	"time"

	"mediaplayer/pkg/surface"
)

// Properties is the playback state captured from a render surface.
type Properties struct {
	Duration     float64 `json:"duration"`
	Volume       float64 `json:"volume"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	PlaybackRate float64 `json:"playbackRate"`
	Paused       bool    `json:"paused"`
	CurrentTime  float64 `json:"currentTime"`
}

// Capture reads every shadow-relevant property from s.
func Capture(s surface.Surface) Properties {
	return Properties{
		Duration:     s.Duration(),
		Volume:       s.Volume(),
		Width:        s.VideoWidth(),
		Height:       s.VideoHeight(),
		PlaybackRate: s.PlaybackRate(),
		Paused:       s.Paused(),
		CurrentTime:  s.CurrentTime(),
	}
}

// Mode selects where a transport call lands. It is either Engaged or
// Shadowed; callers switch on the concrete type.
type Mode interface {
	isMode()
	String() string
}

// Engaged routes calls to the real render surface.
type Engaged struct {
	Surface surface.Surface
}

// Shadowed routes calls to a snapshot; the render surface is untouched.
type Shadowed struct {
	Props *Properties
}

func (Engaged) isMode()  {}
func (Shadowed) isMode() {}

func (Engaged) String() string  { return "engaged" }
func (Shadowed) String() string { return "shadowed" }

// StateMetadata contains metadata about the shadow state
type StateMetadata struct {
	CapturedAt time.Time `json:"capturedAt"`
	Stream     string    `json:"stream"`
}

// StreamShadowState is the observable shadow state of one Video.
type StreamShadowState struct {
	Mode       string        `json:"mode"`
	Enabled    bool          `json:"enabled"`
	MainAudio  bool          `json:"mainAudio"`
	Properties Properties    `json:"properties"`
	Metadata   StateMetadata `json:"metadata"`
}
