package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediaplayer/internal/player"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by commands sent before Connect or after the
// connection dropped.
var ErrNotConnected = errors.New("not connected")

// EventHandler receives broadcast events
type EventHandler func(event Event)

// subscriberEntry holds a handler with its unique subscription ID
type subscriberEntry struct {
	subID   int
	handler EventHandler
}

// Client speaks the remote control protocol. Commands are matched to their
// results by ID; events are fanned out to subscribers by event type.
type Client struct {
	url     string
	logger  *zap.Logger
	timeout time.Duration

	conn      *websocket.Conn
	connected bool
	connMu    sync.RWMutex
	writeMu   sync.Mutex

	msgID   int
	msgIDMu sync.Mutex

	pending   map[int]chan Message
	pendingMu sync.Mutex

	subscribers map[string][]subscriberEntry
	subsMu      sync.RWMutex
	nextSubID   int

	done chan struct{}
}

// NewClient creates a client for the server at url (ws:// or wss://)
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:         url,
		logger:      logger.Named("remote-client"),
		timeout:     10 * time.Second,
		pending:     make(map[int]chan Message),
		subscribers: make(map[string][]subscriberEntry),
	}
}

// Connect dials the server and starts the background receiver
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.connected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.logger.Info("Connected to media player", zap.String("url", c.url))

	go c.receiveMessages(conn, c.done)
	return nil
}

// Disconnect closes the connection. Subscriptions are kept.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.logger.Info("Disconnected from media player")
	return err
}

// IsConnected returns true if client is connected
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

func (c *Client) nextMsgID() int {
	c.msgIDMu.Lock()
	defer c.msgIDMu.Unlock()
	c.msgID++
	return c.msgID
}

// send writes a command and waits for its result
func (c *Client) send(ctx context.Context, cmdType string, value interface{}, pluginName string) (*Message, error) {
	c.connMu.RLock()
	conn, connected, done := c.conn, c.connected, c.done
	c.connMu.RUnlock()
	if !connected {
		return nil, ErrNotConnected
	}

	cmd := Command{ID: c.nextMsgID(), Type: cmdType, Plugin: pluginName}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s value: %w", cmdType, err)
		}
		cmd.Value = data
	}

	respChan := make(chan Message, 1)
	c.pendingMu.Lock()
	c.pending[cmd.ID] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.ID)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := conn.WriteJSON(cmd)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", cmdType, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		if resp.Success != nil && !*resp.Success {
			if resp.Error != nil {
				return nil, resp.Error
			}
			return nil, fmt.Errorf("%s failed", cmdType)
		}
		return &resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s result", cmdType)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, ErrNotConnected
	}
}

// receiveMessages routes results and events until the connection closes
func (c *Client) receiveMessages(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Connection lost", zap.Error(err))
			}
			c.connMu.Lock()
			if c.conn == conn {
				c.connected = false
			}
			c.connMu.Unlock()
			return
		}

		if msg.Type == "event" {
			c.handleEvent(&msg)
			continue
		}

		if msg.ID > 0 {
			c.pendingMu.Lock()
			if ch, ok := c.pending[msg.ID]; ok {
				select {
				case ch <- msg:
				default:
					c.logger.Warn("Response channel full", zap.Int("msg_id", msg.ID))
				}
			}
			c.pendingMu.Unlock()
		}
	}
}

func (c *Client) handleEvent(msg *Message) {
	if msg.Event == nil {
		return
	}

	c.subsMu.RLock()
	entries := append([]subscriberEntry(nil), c.subscribers[msg.Event.EventType]...)
	c.subsMu.RUnlock()

	for _, entry := range entries {
		entry.handler(*msg.Event)
	}
}

// Subscribe registers handler for eventType. The returned function removes
// the subscription.
func (c *Client) Subscribe(eventType string, handler EventHandler) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	c.nextSubID++
	subID := c.nextSubID
	c.subscribers[eventType] = append(c.subscribers[eventType], subscriberEntry{subID: subID, handler: handler})

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()

		entries := c.subscribers[eventType]
		for i, e := range entries {
			if e.subID == subID {
				c.subscribers[eventType] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Play starts every stream
func (c *Client) Play(ctx context.Context) error {
	_, err := c.send(ctx, CommandPlay, nil, "")
	return err
}

// Pause pauses every stream
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.send(ctx, CommandPause, nil, "")
	return err
}

// Seek moves every stream to t seconds
func (c *Client) Seek(ctx context.Context, t float64) error {
	_, err := c.send(ctx, CommandSeek, t, "")
	return err
}

// SetVolume sets the main audio volume in [0, 1]
func (c *Client) SetVolume(ctx context.Context, v float64) error {
	_, err := c.send(ctx, CommandVolume, v, "")
	return err
}

// SetPlaybackRate sets the rate of every stream
func (c *Client) SetPlaybackRate(ctx context.Context, rate float64) error {
	_, err := c.send(ctx, CommandRate, rate, "")
	return err
}

// EnableStream shows a stream
func (c *Client) EnableStream(ctx context.Context, stream string) error {
	_, err := c.send(ctx, CommandEnable, stream, "")
	return err
}

// DisableStream hides a stream and reports whether it is still enabled
func (c *Client) DisableStream(ctx context.Context, stream string) (bool, error) {
	resp, err := c.send(ctx, CommandDisable, stream, "")
	if err != nil {
		return false, err
	}
	var result struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return false, fmt.Errorf("failed to decode disable result: %w", err)
	}
	return result.Enabled, nil
}

// PressButton runs the action of a button plugin
func (c *Client) PressButton(ctx context.Context, name string) error {
	_, err := c.send(ctx, CommandButtonPress, nil, name)
	return err
}

// GetState retrieves the player state
func (c *Client) GetState(ctx context.Context) (*player.State, error) {
	resp, err := c.send(ctx, CommandGetState, nil, "")
	if err != nil {
		return nil, err
	}
	var state player.State
	if err := json.Unmarshal(resp.Result, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}
