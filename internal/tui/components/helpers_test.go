package components

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/model"
)

var errBackend = errors.New("connection refused")

// fakeBackend implements service.Backend in memory.
type fakeBackend struct {
	budgets   model.Budgets
	analysis  string
	rec       model.Recommendation
	report    []byte
	anomalies []model.AnomalyResult
	answer    string
	alerted   []string
	feedback  []model.Feedback
	askErr    error
	alertErr  error
	mu        sync.Mutex
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		budgets: model.Budgets{
			"회의비":   budget(10000000, 4000000, 80),
			"업무추진비": budget(20000000, 2000000, 30),
		},
		analysis: "회의비 집행이 계획보다 빠릅니다.",
		rec: model.Recommendation{
			Action:    model.ActionHold,
			Reasoning: "사용률이 적정 범위입니다.",
		},
		report: []byte("budget report"),
		anomalies: []model.AnomalyResult{
			anomalyResult("V2025-1001", model.SeverityCritical),
			anomalyResult("V2025-1002", model.SeverityLow),
		},
		answer: "세금계산서와 영수증을 첨부합니다.",
	}
}

func budget(total, used int64, monthly float64) model.BudgetCategory {
	return model.BudgetCategory{
		Total:            decimal.NewFromInt(total),
		Used:             decimal.NewFromInt(used),
		Available:        decimal.NewFromInt(total - used),
		UsageRate:        float64(used) / float64(total) * 100,
		MonthlyUsageRate: monthly,
	}
}

func anomalyResult(id string, sev model.Severity) model.AnomalyResult {
	return model.AnomalyResult{
		MaxSeverity: sev,
		Voucher:     model.VoucherSnapshot{VoucherID: id, Vendor: "(주)한빛상사", Amount: decimal.NewFromInt(1500000)},
		RawVoucher:  json.RawMessage(`{"voucher_id":"` + id + `"}`),
		Anomalies: []model.Anomaly{{
			Type:           "payment_delay",
			Severity:       sev,
			Message:        "지급 기한이 30일 지났습니다.",
			Recommendation: "거래처에 지급 일정을 안내하세요.",
		}},
	}
}

func (f *fakeBackend) Budgets(context.Context) (model.Budgets, error) {
	return f.budgets, nil
}

func (f *fakeBackend) AnalyzeBudget(context.Context, model.Budgets, string) (string, error) {
	return f.analysis, nil
}

func (f *fakeBackend) CheckUsage(context.Context, string, float64) error {
	return nil
}

func (f *fakeBackend) Recommend(context.Context, model.RecommendRequest) (model.Recommendation, error) {
	return f.rec, nil
}

func (f *fakeBackend) SubmitFeedback(_ context.Context, fb model.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return nil
}

func (f *fakeBackend) BudgetReport(context.Context, model.Budgets, string) ([]byte, error) {
	return f.report, nil
}

func (f *fakeBackend) Anomalies(context.Context) ([]model.AnomalyResult, error) {
	return f.anomalies, nil
}

func (f *fakeBackend) SendAlert(_ context.Context, r model.AnomalyResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerted = append(f.alerted, r.Voucher.VoucherID)
	return f.alertErr
}

func (f *fakeBackend) Ask(context.Context, string) (string, error) {
	return f.answer, f.askErr
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, collect(t, c)...)
	}
	return msgs
}

// find returns the first message of type T produced by cmd.
func find[T any](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	for _, msg := range collect(t, cmd) {
		if m, ok := msg.(T); ok {
			return m
		}
	}
	var zero T
	require.Failf(t, "message not produced", "%T", zero)
	return zero
}
