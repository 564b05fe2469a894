package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go-chat-hub/pkg/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096
)

// Conn is the subset of *websocket.Conn the client relies on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientConfig tunes a single connection.
type ClientConfig struct {
	OutboundBuffer int
	MaxMessageSize int64
	MessageRate    rate.Limit
	MessageBurst   int
}

// Client drives one websocket connection: it registers a session with the
// hub, turns inbound frames into hub actions and writes the session's
// outbound events back to the peer.
type Client struct {
	conn        Conn
	hub         *Hub
	session     *Session
	initialName string
	limiter     *rate.Limiter
	maxSize     int64
	log         *slog.Logger

	state       atomic.Int32
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient creates a client in the Connecting state with a fresh session id.
func NewClient(hub *Hub, conn Conn, username string, cfg ClientConfig, log *slog.Logger) *Client {
	id := uuid.NewString()

	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}

	var limiter *rate.Limiter
	if cfg.MessageRate > 0 {
		burst := cfg.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.MessageRate, burst)
	}

	return &Client{
		conn:        conn,
		hub:         hub,
		session:     NewSession(id, cfg.OutboundBuffer),
		initialName: username,
		limiter:     limiter,
		maxSize:     maxSize,
		log:         log.With("session_id", id),
		connectedAt: time.Now(),
	}
}

func (c *Client) ID() string {
	return c.session.ID()
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Run serves the connection until it closes. It blocks, so callers usually
// run it on the goroutine that accepted the connection.
func (c *Client) Run() error {
	if c.State() != StateConnecting {
		return fmt.Errorf("run client %s: already %s", c.ID(), c.State())
	}

	history, err := c.hub.Register(c.session)
	if err != nil {
		c.state.Store(int32(StateClosed))
		_ = c.conn.Close()
		return fmt.Errorf("register session: %w", err)
	}
	c.state.Store(int32(StateActive))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump(history)
	}()

	// The initial name is set silently; the join event announces it instead.
	if err := c.hub.Dispatch(c.ID(), chat.SetUsername{Name: c.initialName}); err != nil {
		c.log.Debug("Initial username not applied", "error", err)
	}
	c.hub.Broadcast(chat.NewJoin(c.ID(), c.session.DisplayName()))
	c.log.Info("Client connected", "name", c.session.DisplayName(), "replayed", len(history))

	c.readPump()
	c.shutdown()
	<-writeDone

	c.state.Store(int32(StateClosed))
	c.log.Info("Client disconnected", "name", c.session.DisplayName(), "connected_for", time.Since(c.connectedAt).Round(time.Millisecond))
	return nil
}

// shutdown moves the client to Closing exactly once: the session leaves the
// hub, which closes its outbound channel and stops the write pump, and the
// remaining sessions are told it left.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.hub.Unregister(c.ID())
		c.hub.Broadcast(chat.NewLeave(c.ID(), c.session.DisplayName()))
	})
}

// readPump pumps frames from the websocket connection to the hub.
func (c *Client) readPump() {
	c.conn.SetReadLimit(c.maxSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debug("Ignoring non-text frame", "type", messageType)
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.log.Warn("Rate limit exceeded, frame dropped")
			continue
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	action, err := chat.DecodeAction(data)
	if err != nil {
		c.log.Warn("Dropping malformed frame", "error", err, "size", len(data))
		return
	}

	if err := c.hub.Dispatch(c.ID(), action); err != nil {
		c.log.Debug("Action dropped", "action", action.Kind(), "error", err)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "limit", c.maxSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug("Peer closed connection", "error", err)
	case websocket.IsUnexpectedCloseError(err):
		c.log.Warn("Unexpected close", "error", err)
	default:
		c.log.Debug("Read loop stopped", "error", err)
	}
}

// writePump replays the history, then pumps events from the session's
// outbound channel to the connection until the hub closes it.
func (c *Client) writePump(history []chat.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for _, evt := range history {
		if err := c.writeEvent(evt); err != nil {
			c.log.Debug("History replay failed", "error", err)
			return
		}
	}

	for {
		select {
		case evt, ok := <-c.session.Outbound():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.writeEvent(evt); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeEvent(evt chat.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewUpgrader returns an upgrader that accepts requests whose Origin passes
// allowOrigin. Requests without an Origin header are always accepted.
func NewUpgrader(allowOrigin func(origin string) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowOrigin == nil {
				return true
			}
			return allowOrigin(origin)
		},
	}
}
