// Package remote exposes playback control over a WebSocket. Clients send
// JSON commands and receive a result per command plus broadcast events.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mediaplayer/internal/player"
	"mediaplayer/pkg/plugin"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Controller is the playback surface commands are applied to.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetCurrentTime(ctx context.Context, t float64) error
	SetVolume(ctx context.Context, v float64) error
	SetPlaybackRate(ctx context.Context, rate float64) error
	EnableStream(content string) error
	DisableStream(content string) (bool, error)
	State(ctx context.Context) player.State
}

// commandError carries the error code reported to the client.
type commandError struct {
	code string
	err  error
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func fail(code string, format string, args ...interface{}) error {
	return &commandError{code: code, err: fmt.Errorf(format, args...)}
}

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (w *connWrapper) write(msg Message) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(msg)
}

// Server accepts remote control connections.
type Server struct {
	logger   *zap.Logger
	player   Controller
	registry *plugin.Registry
	upgrader websocket.Upgrader

	connsMu     sync.Mutex
	connections []*connWrapper
}

// NewServer creates a remote control server. Button presses are resolved
// against registry.
func NewServer(p Controller, registry *plugin.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:   logger.Named("remote"),
		player:   p,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves commands until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	wrapper := &connWrapper{conn: conn}
	s.connsMu.Lock()
	s.connections = append(s.connections, wrapper)
	s.connsMu.Unlock()

	s.logger.Info("Remote client connected", zap.String("remote_addr", r.RemoteAddr))

	defer func() {
		s.removeConnection(wrapper)
		conn.Close()
		s.logger.Info("Remote client disconnected", zap.String("remote_addr", r.RemoteAddr))
	}()

	ctx := r.Context()
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		reply := s.handle(ctx, raw)
		if err := wrapper.write(reply); err != nil {
			s.logger.Warn("Failed to write result", zap.Error(err))
			return
		}
	}
}

func (s *Server) removeConnection(wrapper *connWrapper) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for i, w := range s.connections {
		if w == wrapper {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			return
		}
	}
}

// ConnectionCount returns the number of connected clients.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.connections)
}

// handle decodes one command and builds its result message.
func (s *Server) handle(ctx context.Context, raw json.RawMessage) Message {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return failure(0, &commandError{code: ErrorInvalidFormat, err: err})
	}

	result, err := s.dispatch(ctx, cmd)
	if err != nil {
		s.logger.Debug("Command failed",
			zap.Int("id", cmd.ID),
			zap.String("type", cmd.Type),
			zap.Error(err))
		return failure(cmd.ID, err)
	}

	success := true
	msg := Message{ID: cmd.ID, Type: "result", Success: &success}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return failure(cmd.ID, err)
		}
		msg.Result = data
	}
	return msg
}

func failure(id int, err error) Message {
	code := ErrorCommandFailed
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		code = cmdErr.code
	}
	success := false
	return Message{
		ID:      id,
		Type:    "result",
		Success: &success,
		Error:   &Error{Code: code, Message: err.Error()},
	}
}

func (s *Server) dispatch(ctx context.Context, cmd Command) (interface{}, error) {
	switch cmd.Type {
	case CommandPlay:
		return nil, s.player.Play(ctx)
	case CommandPause:
		return nil, s.player.Pause(ctx)
	case CommandSeek:
		t, err := floatValue(cmd)
		if err != nil {
			return nil, err
		}
		return nil, s.player.SetCurrentTime(ctx, t)
	case CommandVolume:
		v, err := floatValue(cmd)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 1 {
			return nil, fail(ErrorInvalidFormat, "volume %v out of range [0, 1]", v)
		}
		return nil, s.player.SetVolume(ctx, v)
	case CommandRate:
		rate, err := floatValue(cmd)
		if err != nil {
			return nil, err
		}
		if rate <= 0 {
			return nil, fail(ErrorInvalidFormat, "playback rate must be positive, got %v", rate)
		}
		return nil, s.player.SetPlaybackRate(ctx, rate)
	case CommandEnable:
		stream, err := stringValue(cmd)
		if err != nil {
			return nil, err
		}
		if err := s.player.EnableStream(stream); err != nil {
			return nil, streamError(err)
		}
		return map[string]bool{"enabled": true}, nil
	case CommandDisable:
		stream, err := stringValue(cmd)
		if err != nil {
			return nil, err
		}
		enabled, err := s.player.DisableStream(stream)
		if err != nil {
			return nil, streamError(err)
		}
		return map[string]bool{"enabled": enabled}, nil
	case CommandButtonPress:
		return nil, s.pressButton(ctx, cmd.Plugin)
	case CommandGetState:
		return s.player.State(ctx), nil
	default:
		return nil, fail(ErrorUnknownCommand, "unknown command type %q", cmd.Type)
	}
}

func streamError(err error) error {
	if errors.Is(err, player.ErrStreamNotFound) {
		return &commandError{code: ErrorNotFound, err: err}
	}
	return err
}

func floatValue(cmd Command) (float64, error) {
	var v float64
	if len(cmd.Value) == 0 {
		return 0, fail(ErrorInvalidFormat, "%s requires a numeric value", cmd.Type)
	}
	if err := json.Unmarshal(cmd.Value, &v); err != nil {
		return 0, fail(ErrorInvalidFormat, "%s requires a numeric value: %v", cmd.Type, err)
	}
	return v, nil
}

func stringValue(cmd Command) (string, error) {
	var v string
	if err := json.Unmarshal(cmd.Value, &v); err != nil || v == "" {
		return "", fail(ErrorInvalidFormat, "%s requires a stream name", cmd.Type)
	}
	return v, nil
}

// pressButton announces the press to every client, then runs the action.
func (s *Server) pressButton(ctx context.Context, name string) error {
	p := s.registry.Get(name)
	if p == nil {
		return fail(ErrorNotFound, "plugin %q not found", name)
	}
	button, ok := p.(plugin.Button)
	if !ok {
		return fail(ErrorNotFound, "plugin %q is not a button", name)
	}
	if !button.IsEnabled() {
		return fail(ErrorCommandFailed, "button %q is disabled", name)
	}

	s.Broadcast(EventButtonPress, ButtonPressEvent{Plugin: name})
	return button.Action(ctx)
}

// Broadcast pushes an event to every connected client.
func (s *Server) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to encode event", zap.String("event", eventType), zap.Error(err))
		return
	}

	msg := Message{
		Type: "event",
		Event: &Event{
			EventType: eventType,
			Data:      payload,
			TimeFired: time.Now(),
		},
	}

	s.connsMu.Lock()
	wrappers := make([]*connWrapper, len(s.connections))
	copy(wrappers, s.connections)
	s.connsMu.Unlock()

	for _, wrapper := range wrappers {
		if err := wrapper.write(msg); err != nil {
			s.logger.Debug("Failed to push event", zap.String("event", eventType), zap.Error(err))
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.connsMu.Lock()
	wrappers := s.connections
	s.connections = nil
	s.connsMu.Unlock()

	for _, wrapper := range wrappers {
		wrapper.writeMu.Lock()
		wrapper.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		wrapper.writeMu.Unlock()
		wrapper.conn.Close()
	}
}
