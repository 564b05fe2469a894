package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Action
	}{
		{"message", `{"action":"message","message":"hi"}`, SendMessage{Text: "hi"}},
		{"set username", `{"action":"setUsername","username":"Bob"}`, SetUsername{Name: "Bob"}},
		{"missing fields default to empty", `{"action":"message"}`, SendMessage{Text: ""}},
		{"unknown action", `{"action":"typing"}`, Unknown{Name: "typing"}},
		{"no action", `{}`, Unknown{Name: ""}},
		{"extra fields ignored", `{"action":"message","message":"x","room":"r1"}`, SendMessage{Text: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAction_Malformed(t *testing.T) {
	for _, input := range []string{`not json`, `{"action":`, `"message"`, `{"action":42}`} {
		_, err := DecodeAction([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestEncodeAction(t *testing.T) {
	data, err := EncodeAction(SetUsername{Name: "Carol"})
	require.NoError(t, err)

	var frame InboundFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, ActionSetUsername, frame.Action)
	assert.Equal(t, "Carol", frame.Username)

	decoded, err := DecodeAction(data)
	require.NoError(t, err)
	assert.Equal(t, SetUsername{Name: "Carol"}, decoded)
}

func TestEncodeAction_Unknown(t *testing.T) {
	_, err := EncodeAction(Unknown{Name: "typing"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
