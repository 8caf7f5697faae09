package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/yesan/internal/tui/themes"
)

// ChatPath is the landing card target that opens the chat panel instead
// of a screen.
const ChatPath = "/qna"

// Feature is one landing page card.
type Feature struct {
	Icon        string
	Title       string
	Description string
	Path        string
	Color       string
	Highlights  []string
}

// Features are the landing page cards in display order.
var Features = []Feature{
	{
		Icon:        "📊",
		Title:       "예산 대시보드",
		Description: "강화학습 기반 예산 관리 및 AI 분석",
		Path:        "/budget",
		Color:       "#667eea",
		Highlights:  []string{"실시간 예산 현황", "AI 예산 분석", "강화학습 추천", "자동 보고서 생성"},
	},
	{
		Icon:        "📝",
		Title:       "전표 작성",
		Description: "AI 자동 전표 작성 및 증빙 검증",
		Path:        "/voucher",
		Color:       "#48bb78",
		Highlights:  []string{"영수증 자동 인식", "세금계산서 검증", "계좌번호 확인", "Invoice 매칭"},
	},
	{
		Icon:        "🔍",
		Title:       "이상탐지",
		Description: "전표 이상 케이스 자동 감지",
		Path:        "/anomaly",
		Color:       "#f6ad55",
		Highlights:  []string{"지급 지연 감지", "환율 오류 탐지", "기간 불일치 체크", "자동 알림 발송"},
	},
	{
		Icon:        "💬",
		Title:       "규정 관리 QnA",
		Description: "AI와 회계 규정 상담",
		Path:        ChatPath,
		Color:       "#764ba2",
		Highlights:  []string{"실시간 AI 상담", "규정 해석", "회계 가이드", "24/7 지원"},
	},
}

// HomeModel is the landing screen.
type HomeModel struct {
	theme  themes.Theme
	cursor int
	width  int
	height int
}

// NewHomeModel creates the landing screen.
func NewHomeModel(theme themes.Theme) HomeModel {
	return HomeModel{theme: theme}
}

// Cursor returns the highlighted card index.
func (m HomeModel) Cursor() int {
	return m.cursor
}

// Update handles messages.
func (m HomeModel) Update(msg tea.Msg) (HomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "right", "l", "down", "j":
			m.cursor = (m.cursor + 1) % len(Features)
		case "left", "h", "up", "k":
			m.cursor = (m.cursor + len(Features) - 1) % len(Features)
		case "enter":
			f := Features[m.cursor]
			if f.Path == ChatPath {
				return m, func() tea.Msg { return OpenChatMsg{} }
			}
			return m, Navigate(f.Path)
		}
	case tea.WindowSizeMsg:
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize sets the available area.
func (m *HomeModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the hero and the feature cards.
func (m HomeModel) View() string {
	hero := lipgloss.JoinVertical(lipgloss.Center,
		m.theme.Title.Render("🤖 AI 기반 예산 관리 시스템"),
		m.theme.Subtitle.Render("강화학습과 LLM으로 스마트하게 관리하세요"),
		"",
		strings.Join([]string{
			themes.ColorStyle("#667eea").Render("🎯 실시간 AI 분석"),
			themes.ColorStyle("#48bb78").Render("🤖 강화학습 적용"),
			themes.ColorStyle("#f6ad55").Render("⚡ 자동 이상탐지"),
		}, "   "),
	)

	cardWidth := 30
	if m.width > 0 && m.width/2-4 < cardWidth {
		cardWidth = max(m.width/2-4, 20)
	}

	cards := make([]string, len(Features))
	for i, f := range Features {
		lines := []string{
			themes.ColorStyle(f.Color).Render(f.Icon + " " + f.Title),
			m.theme.Muted.Render(f.Description),
			"",
		}
		for _, h := range f.Highlights {
			lines = append(lines, themes.ColorStyle(f.Color).Render("✓ ")+m.theme.Normal.Render(h))
		}
		style := m.theme.Card
		if i == m.cursor {
			style = m.theme.ActiveCard
		}
		cards[i] = style.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[0], " ", cards[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[2], " ", cards[3]),
	)

	help := m.theme.Muted.Render("[←→] 선택 | [Enter] 이동 | [1-4] 화면 전환 | [Ctrl+K] 규정 상담")

	return lipgloss.JoinVertical(lipgloss.Center, hero, "", grid, "", help)
}
