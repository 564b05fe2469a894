package chat

import "errors"

var (
	ErrEmptyText      = errors.New("message text is empty")
	ErrEmptyName      = errors.New("username is empty")
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownSession = errors.New("session not registered")
	ErrDuplicateID    = errors.New("session id already registered")
	ErrHubClosed      = errors.New("hub is closed")
)
