package player

import (
	"context"

	"mediaplayer/internal/shadowstate"
	"mediaplayer/pkg/video"
)

// StreamState is the observable state of one stream.
type StreamState struct {
	Content   string                         `json:"content"`
	Plugin    string                         `json:"plugin"`
	MainAudio bool                           `json:"mainAudio"`
	Enabled   bool                           `json:"enabled"`
	Ready     bool                           `json:"ready"`
	Source    string                         `json:"source,omitempty"`
	Quality   int                            `json:"quality"`
	Sources   []video.Source                 `json:"sources"`
	Shadow    *shadowstate.StreamShadowState `json:"shadow,omitempty"`
}

// State is a point-in-time view of the player.
type State struct {
	Loaded       bool          `json:"loaded"`
	MainAudio    string        `json:"mainAudio,omitempty"`
	CurrentTime  float64       `json:"currentTime"`
	Duration     float64       `json:"duration"`
	Paused       bool          `json:"paused"`
	Volume       float64       `json:"volume"`
	PlaybackRate float64       `json:"playbackRate"`
	Streams      []StreamState `json:"streams"`
}

// State snapshots the session. Transport values are read only once the main
// audio stream is ready, so the call never waits on buffering.
func (p *Player) State(ctx context.Context) State {
	state := State{Paused: true, Streams: []StreamState{}}

	main := p.MainAudio()
	if main == nil {
		return state
	}
	state.Loaded = true
	state.MainAudio = main.Content

	if main.Video.Ready() {
		state.CurrentTime = main.Video.CurrentTimeSync()
		if d, err := main.Video.Duration(ctx); err == nil {
			state.Duration = d
		}
		if paused, err := main.Video.Paused(ctx); err == nil {
			state.Paused = paused
		}
		if v, err := main.Video.Volume(ctx); err == nil {
			state.Volume = v
		}
		if rate, err := main.Video.PlaybackRate(ctx); err == nil {
			state.PlaybackRate = rate
		}
	}

	for _, st := range p.Streams() {
		ss := StreamState{
			Content:   st.Content,
			Plugin:    st.Plugin.Name(),
			MainAudio: st.MainAudio,
			Enabled:   st.Video.IsEnabled(),
			Ready:     st.Video.Ready(),
			Source:    st.Surface.Source(),
			Quality:   st.Video.CurrentQuality(),
			Sources:   st.Video.Sources(),
		}
		if shadow, ok := p.tracker.Get(st.Content); ok {
			ss.Shadow = &shadow
		}
		state.Streams = append(state.Streams, ss)
	}
	return state
}

// ShadowStates returns every stream's shadow snapshot keyed by stream name.
func (p *Player) ShadowStates() map[string]shadowstate.StreamShadowState {
	return p.tracker.All()
}
