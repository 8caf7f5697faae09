// Package anomaly holds the anomaly review screen state: the flagged
// vouchers, the severity filter, which vouchers are expanded, and alerts.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
)

// Alert outcomes shown to the user.
const (
	AlertSentMessage   = "✅ 이메일 알림이 발송되었습니다!"
	AlertFailedMessage = "❌ 알림 발송 중 오류가 발생했습니다."
)

// Empty filtered list texts.
const (
	EmptyTitle  = "이상이 발견되지 않았습니다!"
	EmptyDetail = "모든 전표가 정상 상태입니다."
)

// Filter selects results by max severity. FilterAll keeps everything.
type Filter string

// FilterAll disables severity filtering.
const FilterAll Filter = "all"

// Filters lists the selectable filters in menu order.
var Filters = []Filter{
	FilterAll,
	Filter(model.SeverityCritical),
	Filter(model.SeverityHigh),
	Filter(model.SeverityMedium),
	Filter(model.SeverityLow),
}

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown severity filter %q", s)
}

// Label returns the menu label of a filter.
func (f Filter) Label() string {
	if f == FilterAll {
		return "전체"
	}
	return SeverityLabel(model.Severity(f))
}

// Matches reports whether a result passes the filter. Severities are
// compared exactly.
func (f Filter) Matches(r model.AnomalyResult) bool {
	return f == FilterAll || string(r.MaxSeverity) == string(f)
}

// Summary counts results by max severity.
type Summary struct {
	Total         int
	Critical      int
	High          int
	MediumOrLower int
}

// Summarize counts every result regardless of the active filter.
func Summarize(results []model.AnomalyResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.MaxSeverity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		case model.SeverityMedium, model.SeverityLow:
			s.MediumOrLower++
		}
	}
	return s
}

// Review is safe for concurrent use.
type Review struct {
	backend  service.AnomalyBackend
	logger   *slog.Logger
	expanded map[string]bool
	filter   Filter
	results  []model.AnomalyResult
	loading  bool
	mu       sync.Mutex
}

// NewReview creates an empty review.
func NewReview(backend service.AnomalyBackend, logger *slog.Logger) *Review {
	if logger == nil {
		logger = slog.Default()
	}
	return &Review{
		backend:  backend,
		logger:   logger,
		expanded: make(map[string]bool),
		filter:   FilterAll,
	}
}

// Refresh re-runs detection. A failure is logged and the previous results
// stay in place.
func (r *Review) Refresh(ctx context.Context) error {
	r.setLoading(true)
	defer r.setLoading(false)

	results, err := r.backend.Anomalies(ctx)
	if err != nil {
		r.logger.Error("Anomaly detection failed", "error", err)
		return fmt.Errorf("fetch anomalies: %w", err)
	}

	r.mu.Lock()
	r.results = results
	r.mu.Unlock()

	r.logger.Debug("Anomalies refreshed", "results", len(results))
	return nil
}

func (r *Review) setLoading(v bool) {
	r.mu.Lock()
	r.loading = v
	r.mu.Unlock()
}

// SetFilter changes the severity filter.
func (r *Review) SetFilter(f Filter) {
	r.mu.Lock()
	r.filter = f
	r.mu.Unlock()
}

// ToggleExpand flips whether a voucher's details are shown and returns the
// new state.
func (r *Review) ToggleExpand(voucherID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expanded[voucherID] {
		delete(r.expanded, voucherID)
		return false
	}
	r.expanded[voucherID] = true
	return true
}

// SendAlert asks the backend to e-mail an alert for a result and returns
// the message to show.
func (r *Review) SendAlert(ctx context.Context, result model.AnomalyResult) (string, error) {
	r.setLoading(true)
	defer r.setLoading(false)

	if err := r.backend.SendAlert(ctx, result); err != nil {
		r.logger.Error("Alert failed", "voucher_id", result.Voucher.VoucherID, "error", err)
		return AlertFailedMessage, fmt.Errorf("send alert: %w", err)
	}
	r.logger.Info("Alert sent", "voucher_id", result.Voucher.VoucherID, "anomalies", len(result.Anomalies))
	return AlertSentMessage, nil
}

// Snapshot is a consistent copy of the review for rendering.
type Snapshot struct {
	Expanded map[string]bool
	Filter   Filter
	Results  []model.AnomalyResult
	Visible  []model.AnomalyResult
	Summary  Summary
	Loading  bool
}

// ShowSpinner reports whether a loading indicator replaces the list.
func (s Snapshot) ShowSpinner() bool {
	return s.Loading && len(s.Results) == 0
}

// Snapshot returns the current state.
func (r *Review) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	expanded := make(map[string]bool, len(r.expanded))
	for id := range r.expanded {
		expanded[id] = true
	}
	visible := make([]model.AnomalyResult, 0, len(r.results))
	for _, res := range r.results {
		if r.filter.Matches(res) {
			visible = append(visible, res)
		}
	}

	return Snapshot{
		Expanded: expanded,
		Filter:   r.filter,
		Results:  r.results,
		Visible:  visible,
		Summary:  Summarize(r.results),
		Loading:  r.loading,
	}
}
