package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/chat"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
)

func newTestChatPanel(backend *fakeBackend) ChatPanelModel {
	m := NewChatPanelModel(chat.NewSession(backend, nil), themes.Default)
	m.Resize(46, 30)
	return m
}

func TestChatPanelEscapeCloses(t *testing.T) {
	m := newTestChatPanel(newFakeBackend())
	_, cmd := m.Update(keyType(tea.KeyEsc))
	require.NotNil(t, cmd)
	assert.Equal(t, CloseChatMsg{}, cmd())
}

func TestChatPanelQuickQuestions(t *testing.T) {
	m := newTestChatPanel(newFakeBackend())

	m, _ = m.Update(keyType(tea.KeyDown))
	assert.Equal(t, chat.QuickQuestions[0], m.input.Value())
	m, _ = m.Update(keyType(tea.KeyDown))
	assert.Equal(t, chat.QuickQuestions[1], m.input.Value())
	m, _ = m.Update(keyType(tea.KeyUp))
	assert.Equal(t, chat.QuickQuestions[0], m.input.Value())
}

func TestChatPanelSend(t *testing.T) {
	tests := []struct {
		name    string
		backend func() *fakeBackend
		want    string
	}{
		{"answer", newFakeBackend, "세금계산서와 영수증을 첨부합니다."},
		{"backend failure", func() *fakeBackend {
			b := newFakeBackend()
			b.askErr = errBackend
			return b
		}, chat.Apology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestChatPanel(tt.backend())
			m.input.SetValue("  전표 작성 시 필수 첨부 서류는?  ")

			m, cmd := m.Update(keyType(tea.KeyEnter))
			require.NotNil(t, cmd)
			assert.True(t, m.session.Busy())
			assert.Empty(t, m.input.Value())
			assert.Contains(t, m.View(), "답변 작성 중")

			_, again := m.Update(keyType(tea.KeyEnter))
			assert.Nil(t, again, "empty input is ignored")

			answer := find[chatAnswerMsg](t, cmd)
			assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: tt.want}, answer.reply)
			assert.False(t, m.session.Busy())

			msgs := m.session.Messages()
			require.Len(t, msgs, 3)
			assert.Equal(t, "전표 작성 시 필수 첨부 서류는?", msgs[1].Content)
		})
	}
}

func TestChatPanelView(t *testing.T) {
	m := newTestChatPanel(newFakeBackend())
	view := m.View()
	assert.Contains(t, view, chat.PanelTitle)
	assert.Contains(t, view, chat.QuickQHeading)
}
