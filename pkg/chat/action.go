package chat

import (
	"encoding/json"
	"fmt"
)

const (
	ActionMessage     = "message"
	ActionSetUsername = "setUsername"
)

// Action is an inbound client request, decoded once at the connection boundary.
// The set of implementations is closed: SetUsername, SendMessage and Unknown.
type Action interface {
	Kind() string
	isAction()
}

type SetUsername struct {
	Name string
}

type SendMessage struct {
	Text string
}

// Unknown carries an action name the server does not understand.
type Unknown struct {
	Name string
}

func (SetUsername) Kind() string { return ActionSetUsername }
func (SendMessage) Kind() string { return ActionMessage }
func (u Unknown) Kind() string   { return u.Name }

func (SetUsername) isAction() {}
func (SendMessage) isAction() {}
func (Unknown) isAction()     {}

// InboundFrame is the client to server wire shape. Fields that do not apply
// to an action are left empty.
type InboundFrame struct {
	Action   string `json:"action"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

func DecodeAction(data []byte) (Action, error) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode inbound frame: %w", err)
	}

	switch in.Action {
	case ActionMessage:
		return SendMessage{Text: in.Message}, nil
	case ActionSetUsername:
		return SetUsername{Name: in.Username}, nil
	default:
		return Unknown{Name: in.Action}, nil
	}
}

func EncodeAction(action Action) ([]byte, error) {
	var in InboundFrame
	switch a := action.(type) {
	case SendMessage:
		in = InboundFrame{Action: ActionMessage, Message: a.Text}
	case SetUsername:
		in = InboundFrame{Action: ActionSetUsername, Username: a.Name}
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownAction)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind())
	}
	return json.Marshal(in)
}
