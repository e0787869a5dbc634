package video

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RoleMainAudio marks the stream whose Video carries the session audio.
const RoleMainAudio = "mainAudio"

// Manifest describes a media session: its metadata and every stream.
type Manifest struct {
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Streams  []StreamData           `json:"streams"`
}

// StreamData is the manifest fragment for one stream. Sources is keyed by
// format ("mp4", "hls", ...).
type StreamData struct {
	Content string                        `json:"content"`
	Role    string                        `json:"role,omitempty"`
	Sources map[string][]SourceDescriptor `json:"sources"`
}

// SourcesFor returns the source list for a format key, or nil.
func (s *StreamData) SourcesFor(format string) []SourceDescriptor {
	if s == nil || s.Sources == nil {
		return nil
	}
	return s.Sources[format]
}

// IsMainAudio reports whether the stream is marked as the main audio track.
func (s *StreamData) IsMainAudio() bool {
	return s != nil && s.Role == RoleMainAudio
}

// SourceDescriptor is one entry of a per-format source list.
type SourceDescriptor struct {
	Src      string     `json:"src"`
	Mimetype string     `json:"mimetype,omitempty"`
	Res      Resolution `json:"res"`
}

// Resolution is the pixel size of a source. Manifests in the wild write
// the fields either as numbers or as numeric strings; both decode.
type Resolution struct {
	W int `json:"w"`
	H int `json:"h"`
}

// UnmarshalJSON accepts numbers, numeric strings and missing fields.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var raw struct {
		W json.RawMessage `json:"w"`
		H json.RawMessage `json:"h"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse resolution: %w", err)
	}

	w, err := parseDimension(raw.W)
	if err != nil {
		return fmt.Errorf("failed to parse resolution width: %w", err)
	}
	h, err := parseDimension(raw.H)
	if err != nil {
		return fmt.Errorf("failed to parse resolution height: %w", err)
	}

	r.W, r.H = w, h
	return nil
}

func parseDimension(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Source is a resolved, selectable source of a loaded Video.
type Source struct {
	URL        string     `json:"url"`
	Src        string     `json:"src"`
	Mimetype   string     `json:"mimetype,omitempty"`
	Resolution Resolution `json:"resolution"`
}

// Quality is a selectable quality level.
type Quality struct {
	Index      int        `json:"index"`
	Label      string     `json:"label"`
	Resolution Resolution `json:"resolution"`
}

// Dimensions is the decoded frame size of a Video.
type Dimensions struct {
	W int `json:"w"`
	H int `json:"h"`
}
