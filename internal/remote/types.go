package remote

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command types accepted from remote clients.
const (
	CommandPlay        = "play"
	CommandPause       = "pause"
	CommandSeek        = "seek"
	CommandVolume      = "volume"
	CommandRate        = "rate"
	CommandEnable      = "enable"
	CommandDisable     = "disable"
	CommandButtonPress = "button_press"
	CommandGetState    = "get_state"
)

// Event types pushed to every connected client.
const (
	EventButtonPress = "button_press"
	EventEnded       = "ended"
)

// Error codes reported in failed results.
const (
	ErrorInvalidFormat  = "invalid_format"
	ErrorUnknownCommand = "unknown_command"
	ErrorNotFound       = "not_found"
	ErrorCommandFailed  = "command_failed"
)

// Command is a request sent by a remote client.
type Command struct {
	ID     int             `json:"id,omitempty"`
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	Plugin string          `json:"plugin,omitempty"`
}

// Message represents a WebSocket message sent to remote clients
type Message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Event   *Event          `json:"event,omitempty"`
}

// Error represents a failed command
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote error: %s - %s", e.Code, e.Message)
}

// Event represents a broadcast notification
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	TimeFired time.Time       `json:"time_fired"`
}

// ButtonPressEvent is the data of a button_press event.
type ButtonPressEvent struct {
	Plugin string `json:"plugin"`
}
