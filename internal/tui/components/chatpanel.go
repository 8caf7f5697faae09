package components

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/yesan/internal/chat"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
)

type chatAnswerMsg struct {
	reply model.Message
}

// ChatPanelModel is the slide-over regulation chat. Each panel owns one
// session; reopening the panel builds a new model.
type ChatPanelModel struct {
	theme   themes.Theme
	session *chat.Session
	input   textinput.Model
	spinner spinner.Model
	quick   int
	width   int
	height  int
}

// NewChatPanelModel opens a fresh session.
func NewChatPanelModel(session *chat.Session, theme themes.Theme) ChatPanelModel {
	ti := textinput.New()
	ti.Placeholder = chat.InputHint
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Ellipsis
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return ChatPanelModel{
		theme:   theme,
		session: session,
		input:   ti,
		spinner: sp,
		quick:   -1,
		width:   40,
	}
}

// Init starts the cursor blink.
func (m ChatPanelModel) Init() tea.Cmd {
	return textinput.Blink
}

// Session returns the transcript the panel writes to.
func (m ChatPanelModel) Session() *chat.Session {
	return m.session
}

// ask completes the session from the command itself, so an answer that
// arrives after the panel closed still lands in the session that asked.
func ask(session *chat.Session, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		answer, err := session.Ask(ctx, question)
		return chatAnswerMsg{reply: session.Complete(answer, err)}
	}
}

// send starts a question. Empty or concurrent questions are dropped.
func (m ChatPanelModel) send(text string) (ChatPanelModel, tea.Cmd) {
	question, err := m.session.Begin(text)
	if errors.Is(err, chat.ErrEmptyQuestion) || errors.Is(err, chat.ErrBusy) {
		return m, nil
	}
	m.input.Reset()
	m.quick = -1
	return m, tea.Batch(m.spinner.Tick, ask(m.session, question))
}

// Update handles messages.
func (m ChatPanelModel) Update(msg tea.Msg) (ChatPanelModel, tea.Cmd) {
	switch msg := msg.(type) {
	case chatAnswerMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return CloseChatMsg{} }
		case "up":
			if m.input.Value() == "" || m.quick >= 0 {
				m.quick = max(m.quick-1, 0)
				m.input.SetValue(chat.QuickQuestions[m.quick])
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if m.input.Value() == "" || m.quick >= 0 {
				m.quick = min(m.quick+1, len(chat.QuickQuestions)-1)
				m.input.SetValue(chat.QuickQuestions[m.quick])
				m.input.CursorEnd()
			}
			return m, nil
		case "enter":
			return m.send(m.input.Value())
		}
		m.quick = -1
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Resize sets the panel size.
func (m *ChatPanelModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-6, 10)
}

// View renders the transcript, the quick questions and the input.
func (m ChatPanelModel) View() string {
	bubbleWidth := max(m.width-6, 10)

	var transcript []string
	for _, msg := range m.session.Messages() {
		if msg.Role == model.RoleUser {
			transcript = append(transcript, lipgloss.PlaceHorizontal(m.width-2, lipgloss.Right,
				m.theme.UserBubble.MaxWidth(bubbleWidth).Render(msg.Content)))
			continue
		}
		transcript = append(transcript, m.theme.BotBubble.Width(bubbleWidth).Render(msg.Content))
	}
	if m.session.Busy() {
		transcript = append(transcript, m.theme.BotBubble.Render("답변 작성 중"+m.spinner.View()))
	}

	quick := []string{m.theme.Subtitle.Render(chat.QuickQHeading)}
	for i, q := range chat.QuickQuestions {
		if i == m.quick {
			quick = append(quick, m.theme.Selected.Render("› "+q))
		} else {
			quick = append(quick, m.theme.Muted.Render("  "+q))
		}
	}

	body := strings.Join(transcript, "\n\n")
	if m.height > 0 {
		budget := m.height - len(chat.QuickQuestions) - 8
		if lines := strings.Split(body, "\n"); budget > 0 && len(lines) > budget {
			body = strings.Join(lines[len(lines)-budget:], "\n")
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("💬 "+chat.PanelTitle),
		"",
		body,
		"",
		strings.Join(quick, "\n"),
		"",
		m.input.View(),
		m.theme.Muted.Render("[Enter] 전송 | [↑↓] 자주 묻는 질문 | [Esc] 닫기"),
	)
	return m.theme.Panel.Width(m.width).Render(content)
}
