package websocket

import (
	"fmt"
	"strings"

	"go-chat-hub/pkg/chat"
)

// Dispatch applies one decoded client action on behalf of a session. Dropped
// actions are reported through the returned error; none of them is fatal.
func (h *Hub) Dispatch(sessionID string, action chat.Action) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", chat.ErrUnknownSession, sessionID)
	}

	switch a := action.(type) {
	case chat.SetUsername:
		return h.handleSetUsername(s, a)
	case chat.SendMessage:
		return h.handleChatMessage(s, a)
	default:
		kind := ""
		if action != nil {
			kind = action.Kind()
		}
		h.log.Warn("Unknown action dropped", "session_id", s.id, "action", kind)
		return fmt.Errorf("%w: %q", chat.ErrUnknownAction, kind)
	}
}

// handleSetUsername is silent the first time a name is set, which is how the
// join handshake names a session; later changes announce a rename.
func (h *Hub) handleSetUsername(s *Session, a chat.SetUsername) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return chat.ErrEmptyName
	}

	old := s.rename(name)
	if old == "" || old == name {
		return nil
	}

	h.broadcastLocked(chat.NewRename(s.id, old, name))
	return nil
}

func (h *Hub) handleChatMessage(s *Session, a chat.SendMessage) error {
	if strings.TrimSpace(a.Text) == "" {
		return chat.ErrEmptyText
	}

	h.broadcastLocked(chat.NewMessage(s.id, s.DisplayName(), a.Text))
	return nil
}
