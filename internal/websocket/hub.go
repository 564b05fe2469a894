package websocket

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"go-chat-hub/pkg/chat"

	"github.com/samber/lo"
)

const defaultOutboundBuffer = 256

// Observer is notified of every event after it has been appended to the
// history. Observe is called with the hub lock held and must not block.
type Observer interface {
	Observe(evt chat.Event)
}

// Hub owns the set of connected sessions and the chat history. Every
// operation runs under a single mutex, so all sessions observe broadcasts in
// history order and a registration sees any given event either in its replay
// or live, never both.
type Hub struct {
	log *slog.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	history   []chat.Event
	limit     int
	lastStamp time.Time
	observers []Observer
	closed    bool
}

type HubOption func(*Hub)

// WithHistoryLimit keeps only the newest n events. Zero means unbounded.
func WithHistoryLimit(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.limit = n
		}
	}
}

func WithObserver(o Observer) HubOption {
	return func(h *Hub) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

func NewHub(log *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		log:      log,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the session and returns the history as it stood at that
// moment. Nothing is broadcast.
func (h *Hub) Register(s *Session) ([]chat.Event, error) {
	if s == nil {
		return nil, fmt.Errorf("register: nil session")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, chat.ErrHubClosed
	}
	if _, exists := h.sessions[s.id]; exists {
		return nil, fmt.Errorf("%w: %s", chat.ErrDuplicateID, s.id)
	}

	h.sessions[s.id] = s
	h.log.Info("Session registered", "session_id", s.id, "total", len(h.sessions), "replay", len(h.history))
	return slices.Clone(h.history), nil
}

// Unregister removes the session and closes its outbound channel. Unknown ids
// are ignored.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	s.closeOutbound()
	h.log.Info("Session unregistered", "session_id", sessionID, "total", len(h.sessions))
}

// Broadcast appends evt to the history and queues it for every session.
func (h *Hub) Broadcast(evt chat.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(evt)
}

func (h *Hub) broadcastLocked(evt chat.Event) {
	if h.closed {
		h.log.Debug("Hub closed, event dropped", "event_id", evt.ID, "kind", evt.Kind)
		return
	}

	// Timestamps never go backwards in emission order.
	if evt.Timestamp.Before(h.lastStamp) {
		evt.Timestamp = h.lastStamp
	}
	h.lastStamp = evt.Timestamp

	h.history = append(h.history, evt)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = lo.Drop(h.history, len(h.history)-h.limit)
	}

	var overflowed []*Session
	for _, s := range h.sessions {
		if !s.deliver(evt) {
			overflowed = append(overflowed, s)
		}
	}

	for _, s := range overflowed {
		delete(h.sessions, s.id)
		s.closeOutbound()
		h.log.Warn("Session dropped, outbound buffer full", "session_id", s.id, "name", s.DisplayName())
	}

	for _, o := range h.observers {
		o.Observe(evt)
	}

	h.log.Debug("Event broadcast", "event_id", evt.ID, "kind", evt.Kind, "recipients", len(h.sessions))
}

// Close drops every session, closing their outbound channels, and rejects
// further registrations. Later broadcasts are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.sessions {
		s.closeOutbound()
		delete(h.sessions, id)
	}
	h.log.Info("Hub closed")
}

// SessionInfo describes a connected session for the stats endpoint.
type SessionInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sessions lists the connected sessions sorted by display name.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.Lock()
	infos := lo.MapToSlice(h.sessions, func(id string, s *Session) SessionInfo {
		return SessionInfo{ID: id, Username: s.DisplayName()}
	})
	h.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Username == infos[j].Username {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Username < infos[j].Username
	})
	return infos
}

func (h *Hub) HistorySize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}

// History returns the newest limit events in chronological order. A limit of
// zero or less returns everything.
func (h *Hub) History(limit int) []chat.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit >= len(h.history) {
		return slices.Clone(h.history)
	}
	return slices.Clone(h.history[len(h.history)-limit:])
}
