package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/anomaly"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/validation"
)

const barWidth = 20

// UsageBar draws a fixed-width bar for a percentage, capped at 100.
func UsageBar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// RenderBudgets prints totals and one block per category.
func RenderBudgets(w io.Writer, s dashboard.Snapshot) {
	fmt.Fprintln(w, FormatTitle(BudgetIcon, "예산 현황"))
	fmt.Fprintf(w, "총 예산 %s  |  사용 %s  |  잔액 %s\n\n",
		StyleBold(model.FormatWon(s.Totals.Total)),
		StyleBold(model.FormatWon(s.Totals.Used)),
		StyleBold(model.FormatWon(s.Totals.Available)))

	shares := make(map[string]float64, len(s.Slices))
	for _, sl := range s.Slices {
		shares[sl.Category] = sl.Percent
	}

	for _, row := range s.Rows {
		fmt.Fprintf(w, "%s  %s\n", StyleColor(CategoryColor(row.Category), row.Category),
			StyleSubtle(fmt.Sprintf("사용 비중 %.1f%%", shares[row.Category])))
		fmt.Fprintf(w, "  편성 %s / 사용 %s / 잔액 %s\n",
			model.FormatWon(row.Total), model.FormatWon(row.Used), model.FormatWon(row.Available))
		fmt.Fprintf(w, "  %s 월별 목표 대비 %.0f%%\n", UsageBar(row.MonthlyUsageRate), row.MonthlyUsageRate)
		if row.LowUsage {
			fmt.Fprintln(w, "  "+FormatWarning(dashboard.LowUsageFlag))
		}
	}
}

// CategoryColor returns the chart color of a budget category.
func CategoryColor(category string) string {
	switch category {
	case "회의비":
		return "#667eea"
	case "업무추진비":
		return "#48bb78"
	case "복리후생비":
		return "#f6ad55"
	}
	return "#a0aec0"
}

// RenderRecommendation prints an RL recommendation.
func RenderRecommendation(w io.Writer, category string, rec model.Recommendation) {
	fmt.Fprintln(w, FormatTitle("🤖", category+" 강화학습 추천"))
	fmt.Fprintf(w, "추천 행동: %s  (신뢰도 %.1f%%)\n", StyleBold(string(rec.Action)), rec.Confidence*100)
	if rec.Reasoning != "" {
		fmt.Fprintf(w, "근거: %s\n", rec.Reasoning)
	}
	fmt.Fprintf(w, "Q값  증액 %.3f  유지 %.3f  감소 %.3f\n", rec.QValues.Increase, rec.QValues.Hold, rec.QValues.Decrease)
}

// RenderAnomalies prints a summary and the results. With details each
// anomaly's action and detection rule is shown too.
func RenderAnomalies(w io.Writer, summary anomaly.Summary, results []model.AnomalyResult, details bool) {
	fmt.Fprintln(w, FormatTitle(SearchIcon, "전표 이상탐지"))
	fmt.Fprintf(w, "이상 전표 %d건 | 매우 위험 %d건 | 높음 %d건 | 보통 이하 %d건\n\n",
		summary.Total, summary.Critical, summary.High, summary.MediumOrLower)

	if len(results) == 0 {
		fmt.Fprintln(w, FormatSuccess(anomaly.EmptyTitle))
		fmt.Fprintln(w, StyleSubtle(anomaly.EmptyDetail))
		return
	}

	for _, r := range results {
		v := r.Voucher
		fmt.Fprintf(w, "%s  %s  %s\n",
			StyleBold("전표번호: "+v.VoucherID),
			StyleColor(anomaly.SeverityColor(r.MaxSeverity), Text(anomaly.SeverityLabel(r.MaxSeverity))),
			fmt.Sprintf("%d건 이상", len(r.Anomalies)))
		fmt.Fprintf(w, "  작성자 %s | 거래일 %s | 금액 %s | 거래처 %s\n",
			v.Creator, v.TransactionDate, model.FormatWon(v.Amount), v.Vendor)

		for _, a := range r.Anomalies {
			fmt.Fprintf(w, "  - %s %s: %s\n",
				StyleColor(anomaly.SeverityColor(a.Severity), Text(anomaly.SeverityLabel(a.Severity))), a.Type, a.Message)
			if !details {
				continue
			}
			fmt.Fprintf(w, "    조치사항: %s\n", a.Recommendation)
			if e, ok := anomaly.Explain(a.Type); ok {
				fmt.Fprintf(w, "    탐지 규칙: %s\n    원인: %s\n    위험도: %s\n", e.Rule, e.Cause, e.Risk)
			} else {
				fmt.Fprintf(w, "    %s\n", anomaly.GenericExplanation)
			}
		}
		fmt.Fprintln(w)
	}
}

// StatusMark returns the summary-panel mark of a rule status.
func StatusMark(s validation.Status) string {
	switch s {
	case validation.Pass:
		return "✓"
	case validation.Fail:
		return "✗"
	}
	return "·"
}

// RenderStatuses prints the validation summary of a voucher.
func RenderStatuses(w io.Writer, v model.Voucher, statuses validation.Statuses) {
	fmt.Fprintln(w, FormatTitle(VoucherIcon, "실시간 검증 결과"))
	for _, r := range validation.Rules {
		if !validation.Applicable(r, v) {
			continue
		}
		st := statuses[r]
		line := fmt.Sprintf("%s %s", StatusMark(st), r.Label())
		if msg := r.Message(st); msg != "" {
			line += "  " + Text(msg)
		}
		switch st {
		case validation.Pass:
			fmt.Fprintln(w, render(SuccessStyle, line))
		case validation.Fail:
			fmt.Fprintln(w, render(ErrorStyle, line))
		default:
			fmt.Fprintln(w, render(SubtleStyle, line))
		}
	}
}

// RenderVoucherJournal prints locally recorded vouchers.
func RenderVoucherJournal(w io.Writer, records []model.VoucherRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, FormatInfo("저장된 전표가 없습니다."))
		return
	}
	fmt.Fprintln(w, render(TableHeaderStyle, fmt.Sprintf("%-12s %-10s %-10s %-16s %s", "전표번호", "거래일자", "작성자", "금액", "거래처")))
	for _, r := range records {
		v := r.Voucher
		amount := v.Amount
		if d, err := decimal.NewFromString(amount); err == nil {
			amount = model.FormatWon(d)
		}
		fmt.Fprintf(w, "%-12s %-10s %-10s %-16s %s\n", v.VoucherID, v.TransactionDate, v.Creator, amount, v.Vendor)
	}
}

// RenderFeedbackLog prints locally recorded RL feedback.
func RenderFeedbackLog(w io.Writer, records []model.FeedbackRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, FormatInfo("기록된 피드백이 없습니다."))
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s  보상 %+d  사용률 %.1f%% → %.1f%%\n",
			r.RecordedAt.Local().Format("2006-01-02 15:04"), r.Category, r.Feedback.Action, r.Feedback.Reward,
			r.Feedback.State.UsedRatio, r.Feedback.NextState.UsedRatio)
	}
}
