package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const appTitle = "🤖 AI 예산관리 시스템"

// View renders the header, the active screen, the chat panel and the
// status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	body := m.renderScreen()
	if m.showHelp {
		body = m.renderHelp()
	}

	bodyWidth := m.width - 2
	if m.chatOpen {
		bodyWidth -= chatWidth
	}
	body = lipgloss.NewStyle().
		Width(bodyWidth).
		Height(max(m.height-4, 1)).
		Padding(0, 1).
		Render(body)

	if m.chatOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.chat.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

func (m Model) renderScreen() string {
	switch m.screen {
	case ScreenBudget:
		return m.dashboard.View()
	case ScreenVoucher:
		return m.voucher.View()
	case ScreenAnomaly:
		return m.anomalies.View()
	}
	return m.home.View()
}

// renderHeader renders the title and the navigation tabs.
func (m Model) renderHeader() string {
	tabs := make([]string, 0, len(Screens)+1)
	for _, s := range Screens {
		if s == m.screen {
			tabs = append(tabs, m.theme.TabActive.Render(s.Title()))
		} else {
			tabs = append(tabs, m.theme.TabInactive.Render(s.Title()))
		}
	}
	chatTab := m.theme.TabInactive
	if m.chatOpen {
		chatTab = m.theme.TabActive
	}
	tabs = append(tabs, chatTab.Render("💬 AI 규정 상담 (Ctrl+K)"))

	header := lipgloss.JoinHorizontal(
		lipgloss.Center,
		m.theme.Title.Render(appTitle),
		"  ",
		strings.Join(tabs, " "),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(m.theme.Border).
		Width(m.width).
		MaxWidth(m.width).
		Render(header)
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	left := m.screen.Title()

	center := m.status
	centerStyle := m.theme.StatusInfo
	if m.statusErr {
		centerStyle = m.theme.StatusError
	}

	right := "? 도움말"

	totalWidth := m.width - 2
	spacing := totalWidth - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if spacing < 2 {
		spacing = 2
	}
	leftPad := spacing / 2
	rightPad := spacing - leftPad

	status := m.theme.Bold.Render(left) +
		strings.Repeat(" ", leftPad) +
		centerStyle.Render(center) +
		strings.Repeat(" ", rightPad) +
		m.theme.Muted.Render(right)

	return lipgloss.NewStyle().
		Background(m.theme.Border).
		Width(m.width).
		MaxWidth(m.width).
		Render(status)
}

// renderHelp renders the key bindings of the router.
func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("도움말"),
		"",
		h.View(m.keymap),
		"",
		m.theme.Muted.Render("화면별 단축키는 각 화면 하단에 표시됩니다. [?] 닫기"),
	)
}
