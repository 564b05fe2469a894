package client

import (
	"fmt"
	"time"

	"go-chat-hub/pkg/chat"

	"github.com/gookit/color"
)

var (
	systemStyle = color.New(color.FgYellow, color.OpItalic)
	authorStyle = color.New(color.FgCyan, color.OpBold)
	errorStyle  = color.New(color.FgRed)
)

// Render formats a frame as "[hh:mm:ss] user: text". System lines are
// rendered in their own colour without an author.
func Render(frame chat.Frame) string {
	stamp := time.Unix(frame.Timestamp, 0).Format(time.TimeOnly)
	if frame.Username == chat.SystemAuthor {
		return fmt.Sprintf("[%s] %s", stamp, systemStyle.Render("* "+frame.Message))
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, authorStyle.Render(frame.Username), frame.Message)
}

func renderError(err error) string {
	return errorStyle.Render("! " + err.Error())
}
