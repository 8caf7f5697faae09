// Package chat keeps the transcript of the regulation Q&A panel.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
)

// Canned assistant texts.
const (
	Greeting      = "안녕하세요😊\n우리 회사의 자금규정 및 법인카드에 대해 무엇이든 물어보세요!\n(ex. 전표 작성, 예산 편성, 세무 처리)"
	Apology       = "죄송합니다. 응답 생성 중 오류가 발생했습니다. 다시 시도해주세요."
	EmptyAnswer   = "답변을 불러올 수 없습니다."
	InputHint     = "질문을 입력하세요..."
	PanelTitle    = "자금규정 Q&A"
	QuickQHeading = "자주 묻는 질문"
)

// QuickQuestions are the canned prompts offered under the transcript.
var QuickQuestions = []string{
	"전표 작성 시 필수 첨부 서류는?",
	"외화 거래 시 환율 적용 기준은?",
	"예산 증액 요청 프로세스는?",
	"법인카드 사용 규정은?",
	"세금계산서 발행 기한은?",
}

// Send rejections. Neither appends anything to the transcript.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrBusy          = errors.New("an answer is still pending")
)

// Session is one opening of the chat panel. It starts with the greeting
// and allows a single question in flight.
type Session struct {
	backend  service.QnABackend
	logger   *slog.Logger
	messages []model.Message
	busy     bool
	mu       sync.Mutex
}

// NewSession starts a transcript with the greeting.
func NewSession(backend service.QnABackend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{backend: backend, logger: logger}
	s.Reset()
	return s
}

// Reset discards the transcript and starts over with the greeting.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []model.Message{{Role: model.RoleAssistant, Content: Greeting}}
	s.busy = false
}

// Begin appends the user's question and marks the session busy. It
// returns the trimmed question to send.
func (s *Session) Begin(text string) (string, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return "", ErrBusy
	}
	s.busy = true
	s.messages = append(s.messages, model.Message{Role: model.RoleUser, Content: question})
	return question, nil
}

// Complete appends the assistant reply for the pending question: the
// answer, EmptyAnswer when it is blank, or Apology when err is set.
func (s *Session) Complete(answer string, err error) model.Message {
	reply := model.Message{Role: model.RoleAssistant, Content: answer}
	switch {
	case err != nil:
		s.logger.Error("Q&A request failed", "error", err)
		reply.Content = Apology
	case strings.TrimSpace(answer) == "":
		reply.Content = EmptyAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, reply)
	s.busy = false
	return reply
}

// Send runs a whole exchange. A backend failure still appends the apology;
// the error is returned for logging.
func (s *Session) Send(ctx context.Context, text string) (model.Message, error) {
	question, err := s.Begin(text)
	if err != nil {
		return model.Message{}, err
	}

	answer, err := s.backend.Ask(ctx, question)
	reply := s.Complete(answer, err)
	if err != nil {
		return reply, fmt.Errorf("ask: %w", err)
	}
	return reply, nil
}

// Ask sends a question that went through Begin without touching the
// transcript. Asynchronous callers pair it with Complete.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	return s.backend.Ask(ctx, question)
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages...)
}

// Busy reports whether an answer is pending.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
