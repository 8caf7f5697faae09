package components

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/yesan/internal/cli"
	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
)

// Dashboard notices.
const (
	ReportNeedsAnalysis = "⚠️ AI 분석을 먼저 실행해주세요."
	ReportFailedMessage = "❌ 보고서 다운로드 중 오류가 발생했습니다."
	FeedbackFailed      = "❌ 피드백 전송 중 오류가 발생했습니다."
	RecommendFailed     = "❌ 강화학습 추천을 불러오지 못했습니다."
	FetchFailed         = "❌ 예산 데이터를 불러오지 못했습니다."
	RewardRangeMessage  = "⚠️ 보상은 -100에서 100 사이의 정수여야 합니다."
	contextPlaceholder  = "예: 이번 달 안전 장비 3대의 긴급 교체가 필요합니다."
	urgencyStep         = 10
)

type dashboardMode int

const (
	dashBrowse dashboardMode = iota
	dashContext
	dashPanel
)

type budgetsLoadedMsg struct{ err error }

type analysisDoneMsg struct{ err error }

type recommendationMsg struct {
	err      error
	category string
}

type feedbackDoneMsg struct{ err error }

type reportSavedMsg struct {
	err  error
	path string
}

// DashboardModel is the budget dashboard screen.
type DashboardModel struct {
	theme       themes.Theme
	dash        *dashboard.Dashboard
	reportDir   string
	spinner     spinner.Model
	bar         progress.Model
	userContext textarea.Model
	reward      textinput.Model
	mode        dashboardMode
	cursor      int
	action      int
	width       int
	height      int
	busy        bool
}

// NewDashboardModel creates the dashboard screen. Reports are saved
// under reportDir.
func NewDashboardModel(dash *dashboard.Dashboard, reportDir string, theme themes.Theme) DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	bar := progress.New(progress.WithSolidFill(string(theme.Primary)))
	bar.ShowPercentage = false
	bar.Width = 20

	ta := textarea.New()
	ta.Placeholder = contextPlaceholder
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(60)

	ri := textinput.New()
	ri.Placeholder = "좋은 결과: +50~100, 나쁜 결과: -50~-100"
	ri.CharLimit = 4
	ri.Width = 40

	return DashboardModel{
		theme:       theme,
		dash:        dash,
		reportDir:   reportDir,
		spinner:     sp,
		bar:         bar,
		userContext: ta,
		reward:      ri,
	}
}

// Init starts the first fetch.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh())
}

// Capturing reports whether keystrokes go to a text field.
func (m DashboardModel) Capturing() bool {
	return m.mode != dashBrowse
}

func (m DashboardModel) refresh() tea.Cmd {
	dash := m.dash
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		_, err := dash.Refresh(ctx)
		return budgetsLoadedMsg{err: err}
	}
}

func (m DashboardModel) analyze(userContext string) tea.Cmd {
	dash := m.dash
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		_, err := dash.Analyze(ctx, userContext)
		return analysisDoneMsg{err: err}
	}
}

func (m DashboardModel) recommend(category string) tea.Cmd {
	dash := m.dash
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		_, err := dash.Recommend(ctx, category)
		return recommendationMsg{category: category, err: err}
	}
}

func (m DashboardModel) feedback(action model.Action, reward int) tea.Cmd {
	dash := m.dash
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return feedbackDoneMsg{err: dash.Feedback(ctx, action, reward)}
	}
}

func (m DashboardModel) download() tea.Cmd {
	dash, dir := m.dash, m.reportDir
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		report, err := dash.Report(ctx)
		if err != nil {
			return reportSavedMsg{err: err}
		}
		path, err := cli.SaveDownload(ctx, nil, bytes.NewReader(report.Data), int64(len(report.Data)), dir, report.Filename)
		return reportSavedMsg{path: path, err: err}
	}
}

// Update handles messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case budgetsLoadedMsg:
		if msg.err != nil {
			return m, Notify(FetchFailed, true)
		}
		if rows := len(m.dash.Snapshot().Rows); m.cursor >= rows {
			m.cursor = max(rows-1, 0)
		}
		return m, nil

	case analysisDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m, Notify(dashboard.AnalysisErrorMessage, true)
		}
		return m, nil

	case recommendationMsg:
		m.busy = false
		if msg.err != nil {
			return m, Notify(RecommendFailed, true)
		}
		m.openPanel()
		return m, nil

	case feedbackDoneMsg:
		m.busy = false
		if msg.err != nil {
			if errors.Is(msg.err, dashboard.ErrRewardRange) {
				return m, Notify(RewardRangeMessage, true)
			}
			return m, Notify(FeedbackFailed, true)
		}
		m.closePanel()
		return m, Notify(dashboard.FeedbackSuccessMessage, false)

	case reportSavedMsg:
		m.busy = false
		if msg.err != nil {
			return m, Notify(common.UserMessage(msg.err, ReportFailedMessage), true)
		}
		return m, Notify("✅ 보고서가 저장되었습니다: "+msg.path, false)

	case tea.WindowSizeMsg:
		m.Resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case dashContext:
			return m.updateContext(msg)
		case dashPanel:
			return m.updatePanel(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m DashboardModel) updateBrowse(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	snap := m.dash.Snapshot()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(snap.Rows)-1 {
			m.cursor++
		}
	case "r":
		return m, m.refresh()
	case "c":
		m.mode = dashContext
		return m, m.userContext.Focus()
	case "+", "=":
		_ = m.dash.SetUrgency(min(snap.Urgency+urgencyStep, model.MaxUrgency))
	case "-":
		_ = m.dash.SetUrgency(max(snap.Urgency-urgencyStep, model.MinUrgency))
	case "enter":
		if m.busy || len(snap.Rows) == 0 {
			return m, nil
		}
		m.busy = true
		return m, m.recommend(snap.Rows[m.cursor].Category)
	case "d":
		if !snap.HasAnalysis() {
			return m, Notify(ReportNeedsAnalysis, true)
		}
		if m.busy || snap.Loading {
			return m, nil
		}
		m.busy = true
		return m, m.download()
	}
	return m, nil
}

func (m DashboardModel) updateContext(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = dashBrowse
		m.userContext.Blur()
		return m, nil
	case "ctrl+s":
		m.mode = dashBrowse
		m.userContext.Blur()
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.analyze(m.userContext.Value()))
	}
	var cmd tea.Cmd
	m.userContext, cmd = m.userContext.Update(msg)
	return m, cmd
}

func (m DashboardModel) updatePanel(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.dash.ClosePanel()
		m.closePanel()
		return m, nil
	case "left":
		m.action = (m.action + len(model.Actions) - 1) % len(model.Actions)
		return m, nil
	case "right":
		m.action = (m.action + 1) % len(model.Actions)
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		reward, err := strconv.Atoi(strings.TrimSpace(m.reward.Value()))
		if err != nil || reward < model.MinReward || reward > model.MaxReward {
			return m, Notify(RewardRangeMessage, true)
		}
		m.busy = true
		return m, m.feedback(model.Actions[m.action], reward)
	}
	var cmd tea.Cmd
	m.reward, cmd = m.reward.Update(msg)
	return m, cmd
}

func (m *DashboardModel) openPanel() {
	m.mode = dashPanel
	m.action = 0
	if rec := m.dash.Snapshot().Recommendation; rec != nil {
		for i, a := range model.Actions {
			if a == rec.Action {
				m.action = i
			}
		}
	}
	m.reward.SetValue("0")
	m.reward.Focus()
}

func (m *DashboardModel) closePanel() {
	m.mode = dashBrowse
	m.reward.Blur()
	m.reward.Reset()
}

// Resize sets the available area.
func (m *DashboardModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.userContext.SetWidth(max(min(width-4, 80), 20))
	m.bar.Width = max(min(width/4, 30), 10)
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	snap := m.dash.Snapshot()
	title := m.theme.Title.Render("📊 예산 관리 대시보드")

	if snap.ShowSpinner() {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			m.spinner.View()+" "+m.theme.Muted.Render("예산 데이터를 불러오는 중..."))
	}

	sections := []string{title, m.renderTotals(snap), "", m.renderRows(snap), "", m.renderAnalysis(snap)}
	if snap.PanelOpen() {
		sections = append(sections, "", m.renderPanel(snap))
	}
	sections = append(sections, "", m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderTotals(snap dashboard.Snapshot) string {
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		m.theme.Muted.Render("총 예산"), m.theme.Bold.Render(model.FormatWon(snap.Totals.Total)),
		m.theme.Muted.Render("사용"), m.theme.Bold.Render(model.FormatWon(snap.Totals.Used)),
		m.theme.Muted.Render("잔액"), m.theme.Bold.Render(model.FormatWon(snap.Totals.Available)))
}

func (m DashboardModel) renderRows(snap dashboard.Snapshot) string {
	if len(snap.Rows) == 0 {
		return m.theme.Muted.Render("예산 데이터가 없습니다. [r] 새로고침")
	}

	shares := make(map[string]float64, len(snap.Slices))
	for _, s := range snap.Slices {
		shares[s.Category] = s.Percent
	}

	lines := []string{m.theme.Subtitle.Render("예산 항목별 상세")}
	for i, row := range snap.Rows {
		cursor := "  "
		if i == m.cursor {
			cursor = m.theme.StatusInfo.Render("▶ ")
		}
		name := themes.ColorStyle(cli.CategoryColor(row.Category)).Render(row.Category)
		lines = append(lines, fmt.Sprintf("%s%s  %s", cursor, name,
			m.theme.Muted.Render(fmt.Sprintf("사용 비중 %.1f%%", shares[row.Category]))))
		lines = append(lines, fmt.Sprintf("    편성 %s / 사용 %s / 잔액 %s",
			model.FormatWon(row.Total), model.FormatWon(row.Used), model.FormatWon(row.Available)))
		lines = append(lines, fmt.Sprintf("    %s 월별 목표 대비 %.0f%%",
			m.bar.ViewAs(min(row.MonthlyUsageRate/100, 1)), row.MonthlyUsageRate))
		if row.LowUsage {
			lines = append(lines, "    "+m.theme.StatusError.Render("⚠️ "+dashboard.LowUsageFlag))
		}
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderAnalysis(snap dashboard.Snapshot) string {
	lines := []string{m.theme.Subtitle.Render("🤖 AI 추가 분석")}
	if m.mode == dashContext {
		lines = append(lines, m.userContext.View(), m.theme.Muted.Render("[Ctrl+S] 분석 요청 | [Esc] 취소"))
	} else if v := m.userContext.Value(); v != "" {
		lines = append(lines, m.theme.Muted.Render("상황: "+v))
	}
	switch {
	case snap.Analyzing:
		lines = append(lines, m.spinner.View()+" "+m.theme.Muted.Render("분석 중..."))
	case snap.HasAnalysis():
		width := max(min(m.width-4, 100), 20)
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(snap.Analysis))
	}
	lines = append(lines, m.theme.Normal.Render(fmt.Sprintf("긴급 교체 필요도: %d%%", snap.Urgency)))
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderPanel(snap dashboard.Snapshot) string {
	rec := snap.Recommendation
	lines := []string{
		m.theme.Title.Render("🤖 " + snap.Selected + " 강화학습 추천"),
		fmt.Sprintf("추천 행동: %s  (신뢰도 %.1f%%)", m.theme.Bold.Render(string(rec.Action)), rec.Confidence*100),
	}
	if rec.Reasoning != "" {
		lines = append(lines, "근거: "+rec.Reasoning)
	}
	lines = append(lines,
		m.theme.Muted.Render(fmt.Sprintf("Q값  증액 %.3f  유지 %.3f  감소 %.3f", rec.QValues.Increase, rec.QValues.Hold, rec.QValues.Decrease)),
		m.theme.Muted.Render(fmt.Sprintf("현재 상태: 가용 %.1f%% / 사용 %.1f%% / 긴급도 %d%% / %d월",
			snap.State.AvailableRatio, snap.State.UsedRatio, snap.State.UrgencyLevel, snap.State.Month)),
		"",
		m.theme.Subtitle.Render("사용자 피드백 (강화학습 업데이트)"),
	)

	choices := make([]string, len(model.Actions))
	for i, a := range model.Actions {
		if i == m.action {
			choices[i] = m.theme.Selected.Render(" " + string(a) + " ")
		} else {
			choices[i] = m.theme.Muted.Render(" " + string(a) + " ")
		}
	}
	lines = append(lines, "실행한 행동: "+strings.Join(choices, " "), "보상: "+m.reward.View())
	if m.busy {
		lines = append(lines, m.spinner.View()+" "+m.theme.Muted.Render("전송 중..."))
	}
	lines = append(lines, m.theme.Muted.Render("[←→] 행동 선택 | [Enter] 피드백 전송 | [Esc] 닫기"))
	return m.theme.ActiveCard.Render(strings.Join(lines, "\n"))
}

func (m DashboardModel) renderHelp() string {
	return m.theme.Muted.Render("[↑↓] 항목 | [Enter] 강화학습 추천 | [+/-] 긴급도 | [c] AI 분석 | [d] 보고서 | [r] 새로고침")
}
