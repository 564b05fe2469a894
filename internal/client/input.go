package client

import (
	"errors"
	"strings"

	"go-chat-hub/pkg/chat"
)

var ErrUnknownCommand = errors.New("unknown command")

const (
	cmdNick = "/nick"
	cmdQuit = "/quit"
)

// ParseInput turns one line typed by the user into an action. "/nick NAME"
// renames, "/quit" asks to leave and anything else is a chat message. A
// blank line yields a nil action.
func ParseInput(line string) (action chat.Action, quit bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return chat.SendMessage{Text: line}, false, nil
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	switch cmd {
	case cmdQuit:
		return nil, true, nil
	case cmdNick:
		name := strings.TrimSpace(arg)
		if name == "" {
			return nil, false, chat.ErrEmptyName
		}
		return chat.SetUsername{Name: name}, false, nil
	default:
		return nil, false, ErrUnknownCommand
	}
}
