package client

import (
	"fmt"
	"strings"

	"go-chat-hub/pkg/chat"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const maxScrollback = 500

// Connector opens the websocket once the username is known.
type Connector func(username string, ch chan tea.Msg) (Sender, error)

// Sender is the part of WSClient the model drives.
type Sender interface {
	Start()
	Send(action chat.Action) error
	Close() error
}

type Model struct {
	isEnteringUsername bool
	messages           []string
	input              textinput.Model
	username           string
	ws                 Sender
	connect            Connector
	connected          bool
	msgChan            chan tea.Msg
}

// NewModel starts at the username prompt, or connects straight away when a
// username is given.
func NewModel(username string, connect Connector) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "Choose a username"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		input:              ti,
		connect:            connect,
		isEnteringUsername: true,
		msgChan:            make(chan tea.Msg, 64),
	}

	if username != "" {
		if err := m.join(username); err != nil {
			return Model{}, err
		}
	}
	return m, nil
}

func (m *Model) join(username string) error {
	ws, err := m.connect(username, m.msgChan)
	if err != nil {
		return err
	}
	ws.Start()

	m.ws = ws
	m.username = username
	m.connected = true
	m.isEnteringUsername = false
	m.input.Placeholder = "Type your message here (/nick NAME, /quit)"
	m.input.Reset()
	return nil
}

func (m Model) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgChan
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForMsg())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyEnter:
			return m.submit()
		default:
			m.input, cmd = m.input.Update(msg)
		}

	case frameReceivedMsg:
		m.appendLine(Render(chat.Frame(msg)))
		return m, m.waitForMsg()

	case disconnectedMsg:
		m.connected = false
		m.appendLine(renderError(fmt.Errorf("disconnected: %w", msg.err)))
		return m, nil
	}

	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.input.Reset()

	if m.isEnteringUsername {
		name := strings.TrimSpace(text)
		if name == "" {
			return m, nil
		}
		if err := m.join(name); err != nil {
			m.appendLine(renderError(err))
		}
		return m, nil
	}

	action, quit, err := ParseInput(text)
	switch {
	case quit:
		return m.quit()
	case err != nil:
		m.appendLine(renderError(err))
		return m, nil
	case action == nil:
		return m, nil
	case !m.connected:
		m.appendLine(renderError(fmt.Errorf("not connected")))
		return m, nil
	}

	if err := m.ws.Send(action); err != nil {
		m.appendLine(renderError(err))
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.ws != nil {
		_ = m.ws.Close()
	}
	m.connected = false
	return m, tea.Quit
}

func (m *Model) appendLine(line string) {
	m.messages = append(m.messages, line)
	if len(m.messages) > maxScrollback {
		m.messages = m.messages[len(m.messages)-maxScrollback:]
	}
}

func (m Model) View() string {
	if m.isEnteringUsername {
		var b strings.Builder
		for _, line := range m.messages {
			b.WriteString(line + "\n")
		}
		fmt.Fprintf(&b, "Enter your username: %s\n", m.input.View())
		return b.String()
	}

	var b strings.Builder
	for _, line := range m.messages {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + m.input.View())
	b.WriteString("\n[Enter] to send, [Esc] to quit")
	return b.String()
}
