package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/yesan/internal/anomaly"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
)

// AnomalyFetchFailed is shown when the anomaly list cannot be loaded.
const AnomalyFetchFailed = "❌ 이상탐지 결과를 불러오지 못했습니다."

type anomaliesLoadedMsg struct{ err error }

type alertSentMsg struct {
	err     error
	message string
}

// AnomalyListModel is the anomaly review screen.
type AnomalyListModel struct {
	theme    themes.Theme
	review   *anomaly.Review
	spinner  spinner.Model
	viewport viewport.Model
	cursor   int
	width    int
	height   int
	rules    bool
	sending  bool
}

// NewAnomalyListModel creates the anomaly screen.
func NewAnomalyListModel(review *anomaly.Review, theme themes.Theme) AnomalyListModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return AnomalyListModel{
		theme:    theme,
		review:   review,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
}

// Init starts the first fetch.
func (m AnomalyListModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh())
}

// Capturing always reports false; the list has no text fields.
func (m AnomalyListModel) Capturing() bool {
	return false
}

func (m AnomalyListModel) refresh() tea.Cmd {
	review := m.review
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return anomaliesLoadedMsg{err: review.Refresh(ctx)}
	}
}

func (m AnomalyListModel) sendAlert(result model.AnomalyResult) tea.Cmd {
	review := m.review
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		text, err := review.SendAlert(ctx, result)
		return alertSentMsg{message: text, err: err}
	}
}

// Update handles messages.
func (m AnomalyListModel) Update(msg tea.Msg) (AnomalyListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case anomaliesLoadedMsg:
		m.clampCursor()
		if msg.err != nil {
			return m, Notify(AnomalyFetchFailed, true)
		}
		return m, nil

	case alertSentMsg:
		m.sending = false
		return m, Notify(msg.message, msg.err != nil)

	case tea.WindowSizeMsg:
		m.Resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		visible := m.review.Snapshot().Visible
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(visible)-1 {
				m.cursor++
			}
		case "enter", " ":
			if len(visible) > 0 {
				m.review.ToggleExpand(visible[m.cursor].Voucher.VoucherID)
			}
		case "f":
			m.review.SetFilter(nextFilter(m.review.Snapshot().Filter))
			m.cursor = 0
		case "x":
			m.rules = !m.rules
		case "r":
			return m, m.refresh()
		case "a":
			if m.sending || len(visible) == 0 {
				return m, nil
			}
			m.sending = true
			return m, m.sendAlert(visible[m.cursor])
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		m.follow()
	}
	return m, nil
}

func nextFilter(f anomaly.Filter) anomaly.Filter {
	for i, candidate := range anomaly.Filters {
		if candidate == f {
			return anomaly.Filters[(i+1)%len(anomaly.Filters)]
		}
	}
	return anomaly.FilterAll
}

func (m *AnomalyListModel) clampCursor() {
	if n := len(m.review.Snapshot().Visible); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// follow scrolls so the selected card stays in view.
func (m *AnomalyListModel) follow() {
	m.clampCursor()
	content, offset := m.renderCards(m.review.Snapshot())
	m.viewport.SetContent(content)
	if offset < m.viewport.YOffset || offset >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(offset)
	}
}

// Resize sets the available area.
func (m *AnomalyListModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-8, 5)
}

// View renders the summary, the filter and the result cards.
func (m AnomalyListModel) View() string {
	snap := m.review.Snapshot()
	title := m.theme.Title.Render("🔍 전표 이상탐지")

	if snap.ShowSpinner() {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			m.spinner.View()+" "+m.theme.Muted.Render("이상탐지 결과를 불러오는 중..."))
	}

	summary := fmt.Sprintf("%s %d   %s %d   %s %d   %s %d",
		m.theme.Muted.Render("이상 전표"), snap.Summary.Total,
		themes.ColorStyle(anomaly.SeverityColor(model.SeverityCritical)).Render("매우 위험"), snap.Summary.Critical,
		themes.ColorStyle(anomaly.SeverityColor(model.SeverityHigh)).Render("높음"), snap.Summary.High,
		themes.ColorStyle(anomaly.SeverityColor(model.SeverityMedium)).Render("보통 이하"), snap.Summary.MediumOrLower)

	filters := make([]string, len(anomaly.Filters))
	for i, f := range anomaly.Filters {
		if f == snap.Filter {
			filters[i] = m.theme.TabActive.Render(f.Label())
		} else {
			filters[i] = m.theme.TabInactive.Render(f.Label())
		}
	}

	sections := []string{title, summary, "필터: " + strings.Join(filters, " "), ""}
	if m.rules {
		sections = append(sections, m.renderRules(), "")
	}

	if len(snap.Visible) == 0 {
		sections = append(sections,
			m.theme.StatusSuccess.Render("✅ "+anomaly.EmptyTitle),
			m.theme.Muted.Render(anomaly.EmptyDetail))
	} else {
		content, _ := m.renderCards(snap)
		vp := m.viewport
		vp.SetContent(content)
		sections = append(sections, vp.View())
	}

	sections = append(sections, "", m.theme.Muted.Render("[↑↓] 선택 | [Enter] 상세 | [f] 필터 | [a] 알림 발송 | [x] 위험 기준 | [r] 새로고침"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderCards returns the list and the line offset of the selected card.
func (m AnomalyListModel) renderCards(snap anomaly.Snapshot) (string, int) {
	var b strings.Builder
	offset := 0
	line := 0
	for i, r := range snap.Visible {
		if i == m.cursor {
			offset = line
		}
		card := m.renderCard(r, i == m.cursor, snap.Expanded[r.Voucher.VoucherID])
		b.WriteString(card)
		b.WriteString("\n")
		line += strings.Count(card, "\n") + 1
	}
	return b.String(), offset
}

func (m AnomalyListModel) renderCard(r model.AnomalyResult, selected, expanded bool) string {
	v := r.Voucher
	header := fmt.Sprintf("%s  %s  %s",
		m.theme.Bold.Render("전표번호: "+v.VoucherID),
		themes.ColorStyle(anomaly.SeverityColor(r.MaxSeverity)).Render(anomaly.SeverityLabel(r.MaxSeverity)),
		m.theme.Muted.Render(fmt.Sprintf("%d건 이상", len(r.Anomalies))))

	lines := []string{
		header,
		m.theme.Muted.Render(fmt.Sprintf("작성자 %s | 거래일 %s | 금액 %s | 거래처 %s",
			v.Creator, v.TransactionDate, model.FormatWon(v.Amount), v.Vendor)),
	}

	if expanded {
		for _, a := range r.Anomalies {
			lines = append(lines,
				themes.ColorStyle(anomaly.SeverityColor(a.Severity)).Render(anomaly.SeverityLabel(a.Severity))+" "+m.theme.Bold.Render(a.Type),
				"  "+a.Message,
				"  "+m.theme.StatusInfo.Render("조치사항: ")+a.Recommendation)
		}
	}

	style := m.theme.Card
	if selected {
		style = m.theme.ActiveCard.Border(lipgloss.ThickBorder())
	}
	return style.BorderForeground(lipgloss.Color(anomaly.SeverityColor(r.MaxSeverity))).Render(strings.Join(lines, "\n"))
}

func (m AnomalyListModel) renderRules() string {
	seen := make(map[string]bool)
	lines := []string{m.theme.Subtitle.Render("위험 기준")}
	for _, r := range m.review.Snapshot().Results {
		for _, a := range r.Anomalies {
			if seen[a.Type] {
				continue
			}
			seen[a.Type] = true
			if e, ok := anomaly.Explain(a.Type); ok {
				lines = append(lines,
					m.theme.Bold.Render(a.Type),
					"  탐지 규칙: "+e.Rule,
					"  원인: "+e.Cause,
					"  위험도: "+e.Risk)
			} else {
				lines = append(lines, m.theme.Bold.Render(a.Type), "  "+anomaly.GenericExplanation)
			}
		}
	}
	if len(seen) == 0 {
		lines = append(lines, m.theme.Muted.Render(anomaly.GenericExplanation))
	}
	return m.theme.Card.Render(strings.Join(lines, "\n"))
}
