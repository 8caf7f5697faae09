package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// clearStatusAfter expires the notice numbered seq. A newer notice has a
// higher number and survives.
func clearStatusAfter(seq int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
