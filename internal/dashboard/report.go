package dashboard

import (
	"context"
	"fmt"
	"time"
)

// ReportFilename returns the download name of a report generated at t.
func ReportFilename(t time.Time) string {
	return "budget_report_" + t.Format("2006-01-02") + ".txt"
}

// Report is a downloaded budget report.
type Report struct {
	Filename string
	Data     []byte
}

// Report generates the budget report. An analysis must exist first.
func (d *Dashboard) Report(ctx context.Context) (Report, error) {
	d.mu.Lock()
	budgets, analysis := d.budgets, d.analysis
	d.mu.Unlock()

	if analysis == "" {
		return Report{}, ErrNoAnalysis
	}

	data, err := d.backend.BudgetReport(ctx, budgets, analysis)
	if err != nil {
		d.logger.Error("Report download failed", "error", err)
		return Report{}, fmt.Errorf("download report: %w", err)
	}

	return Report{Filename: ReportFilename(d.now()), Data: data}, nil
}
