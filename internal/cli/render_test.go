package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/yesan/internal/anomaly"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/validation"
)

func TestUsageBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░░░░░░░░░░░", UsageBar(0))
	assert.Equal(t, "██████████░░░░░░░░░░", UsageBar(50))
	assert.Equal(t, "████████████████████", UsageBar(130))
	assert.Equal(t, "░░░░░░░░░░░░░░░░░░░░", UsageBar(-5))
}

func TestRenderBudgets(t *testing.T) {
	withPlain(t)

	budgets := model.Budgets{
		"회의비": {Total: decimal.NewFromInt(10000000), Used: decimal.NewFromInt(4000000), Available: decimal.NewFromInt(6000000), MonthlyUsageRate: 35},
	}
	snap := dashboard.Snapshot{
		Budgets: budgets,
		Totals:  budgets.Totals(),
		Rows:    dashboard.Rows(budgets),
		Slices:  dashboard.Slices(budgets),
	}

	var buf bytes.Buffer
	RenderBudgets(&buf, snap)
	out := buf.String()

	assert.Contains(t, out, "총 예산 10,000,000원")
	assert.Contains(t, out, "사용 비중 100.0%")
	assert.Contains(t, out, "월별 목표 대비 35%")
	assert.Contains(t, out, "월 편성 50% 미만! 긴급 점검 필요")
}

func TestRenderAnomalies(t *testing.T) {
	withPlain(t)

	results := []model.AnomalyResult{{
		MaxSeverity: model.SeverityCritical,
		Voucher:     model.VoucherSnapshot{VoucherID: "V2025-1001", Amount: decimal.NewFromInt(2500000)},
		Anomalies: []model.Anomaly{
			{Type: "payment_delay", Severity: model.SeverityCritical, Message: "지급 지연", Recommendation: "일정 확인"},
			{Type: "duplicate", Severity: model.SeverityLow, Message: "중복 의심"},
		},
	}}

	var buf bytes.Buffer
	RenderAnomalies(&buf, anomaly.Summarize(results), results, true)
	out := buf.String()

	assert.Contains(t, out, "이상 전표 1건 | 매우 위험 1건")
	assert.Contains(t, out, "전표번호: V2025-1001")
	assert.Contains(t, out, "2,500,000원")
	assert.Contains(t, out, "탐지 규칙: 거래일자와 지급예정일 사이가 40일 이상")
	assert.Contains(t, out, anomaly.GenericExplanation)
	assert.NotContains(t, out, "🚨")

	buf.Reset()
	RenderAnomalies(&buf, anomaly.Summary{}, nil, false)
	assert.Contains(t, buf.String(), anomaly.EmptyTitle)
}

func TestRenderStatuses(t *testing.T) {
	withPlain(t)

	v := model.NewVoucher("V2025-1000")
	statuses := validation.Statuses{
		validation.RuleAccount:      validation.Fail,
		validation.RuleInvoice:      validation.Pass,
		validation.RuleExchangeDate: validation.Fail,
	}

	var buf bytes.Buffer
	RenderStatuses(&buf, v, statuses)
	out := buf.String()

	assert.Contains(t, out, "✗ 계좌번호 일치 확인 시스템 계좌번호와 불일치!")
	assert.Contains(t, out, "✓ Invoice 금액 일치")
	assert.Contains(t, out, "· 기간 귀속 일치")
	assert.NotContains(t, out, "환율 적용일 일치", "exchange rule hidden for KRW")
}

func TestRenderJournalAndFeedback(t *testing.T) {
	withPlain(t)

	var buf bytes.Buffer
	RenderVoucherJournal(&buf, nil)
	assert.Contains(t, buf.String(), "저장된 전표가 없습니다.")

	buf.Reset()
	v := model.NewVoucher("V2025-4321")
	v.Amount = "1500000"
	RenderVoucherJournal(&buf, []model.VoucherRecord{{Voucher: v}})
	assert.Contains(t, buf.String(), "V2025-4321")
	assert.Contains(t, buf.String(), "1,500,000원")

	buf.Reset()
	RenderFeedbackLog(&buf, []model.FeedbackRecord{{
		RecordedAt: time.Date(2025, 11, 14, 10, 0, 0, 0, time.Local),
		Category:   "회의비",
		Feedback:   model.Feedback{Action: model.ActionIncrease, Reward: 80, NextState: model.RLState{UsedRatio: 50}},
	}})
	assert.Contains(t, buf.String(), "회의비  증액  보상 +80")
	assert.Contains(t, buf.String(), "→ 50.0%")
}
