package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go-chat-hub/pkg/chat"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// frameReceivedMsg carries one event pushed by the server.
type frameReceivedMsg chat.Frame

// disconnectedMsg reports that the read loop stopped.
type disconnectedMsg struct{ err error }

type WSClient struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	ch      chan tea.Msg
}

// ChatURL builds the websocket URL for a server address such as
// "localhost:8080". An empty name joins anonymously.
func ChatURL(addr, username string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	if username != "" {
		u.Path = "/ws/" + url.PathEscape(username)
	}
	return u.String()
}

func NewWSClient(addr, username string, ch chan tea.Msg) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(ChatURL(addr, username), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &WSClient{conn: conn, ch: ch}, nil
}

// Dialer returns a Connector that dials the chat server at addr.
func Dialer(addr string) Connector {
	return func(username string, ch chan tea.Msg) (Sender, error) {
		c, err := NewWSClient(addr, username, ch)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Start pumps server frames into the message channel until the connection
// drops, then sends a single disconnectedMsg.
func (c *WSClient) Start() {
	go func() {
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				c.ch <- disconnectedMsg{err: err}
				return
			}

			var frame chat.Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			c.ch <- frameReceivedMsg(frame)
		}
	}()
}

func (c *WSClient) Send(action chat.Action) error {
	data, err := chat.EncodeAction(action)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close says goodbye to the server and drops the connection.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}
