package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the router's keyboard shortcuts. Screen keys only apply
// while no text field has focus.
type KeyMap struct {
	// Screens
	Home    key.Binding
	Budget  key.Binding
	Voucher key.Binding
	Anomaly key.Binding
	Next    key.Binding
	Prev    key.Binding

	// Chat panel
	ToggleChat key.Binding

	// Application
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	ClearScreen key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Home: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "홈"),
		),
		Budget: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "예산 대시보드"),
		),
		Voucher: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "전표 작성"),
		),
		Anomaly: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "이상탐지"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "다음 화면"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("Shift+Tab", "이전 화면"),
		),
		ToggleChat: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("Ctrl+K", "규정 상담"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "도움말"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "종료"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "강제 종료"),
		),
		ClearScreen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "화면 지우기"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.ToggleChat, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Home, k.Budget, k.Voucher, k.Anomaly},
		{k.Next, k.Prev, k.ToggleChat},
		{k.Help, k.ClearScreen, k.Quit, k.ForceQuit},
	}
}
