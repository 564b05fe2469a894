package chat

import (
	"encoding/json"
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// SystemAuthor is the username carried by join, leave and rename events.
	SystemAuthor = "system"

	// AnonymousName is shown for sessions that never set a display name.
	AnonymousName = "Anônimo"

	eventIDLength = 12
)

type EventKind int

const (
	KindMessage EventKind = iota
	KindJoin
	KindLeave
	KindRename
)

func (k EventKind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindJoin:
		return "JOIN"
	case KindLeave:
		return "LEAVE"
	case KindRename:
		return "RENAME"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

// IsSystem reports whether events of this kind are authored by the server.
func (k EventKind) IsSystem() bool {
	return k != KindMessage
}

// Event is one unit of broadcast information. It must not be modified once
// the hub has appended it to the history.
type Event struct {
	ID        string
	Kind      EventKind
	Author    string
	Text      string
	Timestamp time.Time

	// SessionID, Subject and Previous stay server side: the session that
	// caused the event, the display name it is about and, for renames, the
	// name it replaced.
	SessionID string
	Subject   string
	Previous  string
}

// Frame is the outbound wire representation of an Event.
type Frame struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (e Event) Frame() Frame {
	return Frame{
		ID:        e.ID,
		Username:  e.Author,
		Message:   e.Text,
		Timestamp: e.Timestamp.Unix(),
	}
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Frame())
}

func newEvent(kind EventKind, sessionID, author, subject, text string) Event {
	return Event{
		ID:        nanoid.Must(eventIDLength),
		Kind:      kind,
		Author:    author,
		Text:      text,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Subject:   subject,
	}
}

// NewMessage builds a user message. An empty author falls back to AnonymousName.
func NewMessage(sessionID, author, text string) Event {
	if author == "" {
		author = AnonymousName
	}
	return newEvent(KindMessage, sessionID, author, author, text)
}

func NewJoin(sessionID, name string) Event {
	return newEvent(KindJoin, sessionID, SystemAuthor, name, fmt.Sprintf("%s entrou no chat", name))
}

func NewLeave(sessionID, name string) Event {
	return newEvent(KindLeave, sessionID, SystemAuthor, name, fmt.Sprintf("%s saiu do chat", name))
}

func NewRename(sessionID, oldName, newName string) Event {
	evt := newEvent(KindRename, sessionID, SystemAuthor, newName, fmt.Sprintf("%s agora é conhecido como %s", oldName, newName))
	evt.Previous = oldName
	return evt
}

// Frames converts events to their wire form, preserving order.
func Frames(events []Event) []Frame {
	frames := make([]Frame, len(events))
	for i, evt := range events {
		frames[i] = evt.Frame()
	}
	return frames
}
