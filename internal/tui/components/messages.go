package components

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// requestTimeout bounds every backend call a component makes.
const requestTimeout = 60 * time.Second

// NavigateMsg asks the router to show the screen mounted at Path.
type NavigateMsg struct {
	Path string
}

// OpenChatMsg asks the router to open the chat panel.
type OpenChatMsg struct{}

// CloseChatMsg asks the router to close the chat panel. It is the panel's
// only way to change state outside itself.
type CloseChatMsg struct{}

// StatusMsg is a transient notice for the status bar.
type StatusMsg struct {
	Text string
	Err  bool
}

// Navigate returns a command emitting a NavigateMsg.
func Navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

// Notify returns a command emitting a StatusMsg.
func Notify(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text, Err: isErr} }
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
