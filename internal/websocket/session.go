package websocket

import (
	"sync"

	"go-chat-hub/pkg/chat"
)

// Session is the hub-side record of one live connection.
//
// The outbound channel is written and closed only by the Hub, while holding
// its lock, and read only by the owning client's write pump.
type Session struct {
	id       string
	outbound chan chat.Event
	closed   bool

	mu   sync.RWMutex
	name string
}

func NewSession(id string, buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultOutboundBuffer
	}
	return &Session{
		id:       id,
		outbound: make(chan chat.Event, buffer),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Outbound returns the events queued for this session, in hub order. The
// channel is closed when the hub drops the session.
func (s *Session) Outbound() <-chan chat.Event {
	return s.outbound
}

// Name returns the name set by the client, empty if none was set yet.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// DisplayName is Name with the anonymous placeholder applied.
func (s *Session) DisplayName() string {
	if name := s.Name(); name != "" {
		return name
	}
	return chat.AnonymousName
}

func (s *Session) rename(name string) (old string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, s.name = s.name, name
	return old
}

// deliver never blocks; false means the buffer is full or already closed.
func (s *Session) deliver(evt chat.Event) bool {
	if s.closed {
		return false
	}
	select {
	case s.outbound <- evt:
		return true
	default:
		return false
	}
}

func (s *Session) closeOutbound() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.outbound)
}
