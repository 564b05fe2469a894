package client

import (
	"testing"

	"go-chat-hub/pkg/chat"

	"github.com/stretchr/testify/assert"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		action chat.Action
		quit   bool
		err    error
	}{
		{"message", "hello there", chat.SendMessage{Text: "hello there"}, false, nil},
		{"message keeps spacing", "  hi  ", chat.SendMessage{Text: "  hi  "}, false, nil},
		{"blank", "   ", nil, false, nil},
		{"nick", "/nick  Alicia ", chat.SetUsername{Name: "Alicia"}, false, nil},
		{"nick with spaces", "/nick Dona Alice", chat.SetUsername{Name: "Dona Alice"}, false, nil},
		{"nick without name", "/nick", nil, false, chat.ErrEmptyName},
		{"quit", "/quit", nil, true, nil},
		{"unknown command", "/dance", nil, false, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, quit, err := ParseInput(tt.line)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.quit, quit)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
