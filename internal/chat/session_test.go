package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/model"
)

type fakeQnA struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeQnA) Ask(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func TestNewSessionGreets(t *testing.T) {
	s := NewSession(&fakeQnA{}, nil)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: Greeting}, msgs[0])
	assert.False(t, s.Busy())
}

func TestSend(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeQnA
		want    string
		wantErr bool
	}{
		{"answer", &fakeQnA{answer: "세금계산서와 영수증을 첨부합니다."}, "세금계산서와 영수증을 첨부합니다.", false},
		{"empty answer", &fakeQnA{answer: "  "}, EmptyAnswer, false},
		{"backend failure", &fakeQnA{err: errors.New("502")}, Apology, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.backend, nil)

			reply, err := s.Send(context.Background(), "  법인카드 사용 규정은?  ")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, reply.Content)
			assert.Equal(t, []string{"법인카드 사용 규정은?"}, tt.backend.asked)

			msgs := s.Messages()
			require.Len(t, msgs, 3)
			assert.Equal(t, model.Message{Role: model.RoleUser, Content: "법인카드 사용 규정은?"}, msgs[1])
			assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: tt.want}, msgs[2])
			assert.False(t, s.Busy())
		})
	}
}

func TestSendRejections(t *testing.T) {
	backend := &fakeQnA{answer: "ok"}
	s := NewSession(backend, nil)

	_, err := s.Send(context.Background(), " \n\t")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = s.Begin("첫 질문")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "두번째 질문")
	assert.ErrorIs(t, err, ErrBusy)

	assert.Len(t, s.Messages(), 2)
	assert.Empty(t, backend.asked)
}

func TestBeginCompleteOrdering(t *testing.T) {
	s := NewSession(&fakeQnA{}, nil)

	q, err := s.Begin(QuickQuestions[0])
	require.NoError(t, err)
	assert.Equal(t, "전표 작성 시 필수 첨부 서류는?", q)
	assert.True(t, s.Busy())

	s.Complete("영수증, 세금계산서", nil)
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)
}

func TestReset(t *testing.T) {
	s := NewSession(&fakeQnA{answer: "a"}, nil)
	_, err := s.Send(context.Background(), "q")
	require.NoError(t, err)

	s.Reset()
	assert.Len(t, s.Messages(), 1)
	assert.Len(t, QuickQuestions, 5)
}
