package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// ChartRow is one category's bar chart row.
type ChartRow struct {
	Category         string
	Total            decimal.Decimal
	Used             decimal.Decimal
	Available        decimal.Decimal
	UsageRate        float64
	MonthlyUsageRate float64
	LowUsage         bool
}

// Slice is one category's share of all used budget.
type Slice struct {
	Category string
	Percent  float64
}

// Snapshot is a consistent copy of the dashboard for rendering.
type Snapshot struct {
	Recommendation *model.Recommendation
	Budgets        model.Budgets
	Totals         model.BudgetTotals
	Analysis       string
	Selected       string
	Rows           []ChartRow
	Slices         []Slice
	State          model.RLState
	Urgency        int
	Loading        bool
	Analyzing      bool
}

// ShowSpinner reports whether a loading indicator replaces the content:
// only while loading with nothing cached.
func (s Snapshot) ShowSpinner() bool {
	return s.Loading && s.Budgets == nil
}

// HasAnalysis reports whether a report may be requested.
func (s Snapshot) HasAnalysis() bool {
	return s.Analysis != ""
}

// PanelOpen reports whether the RL panel is showing.
func (s Snapshot) PanelOpen() bool {
	return s.Recommendation != nil
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Snapshot{
		Budgets:   d.budgets,
		Analysis:  d.analysis,
		Selected:  d.selected,
		State:     d.state,
		Urgency:   d.urgency,
		Loading:   d.loading,
		Analyzing: d.analyzing,
	}
	if d.recommendation != nil {
		rec := *d.recommendation
		s.Recommendation = &rec
	}
	if d.budgets != nil {
		s.Totals = d.budgets.Totals()
		s.Rows = Rows(d.budgets)
		s.Slices = Slices(d.budgets)
	}
	return s
}

// Rows returns the chart rows in category order.
func Rows(b model.Budgets) []ChartRow {
	rows := make([]ChartRow, 0, len(b))
	for _, name := range b.Categories() {
		c := b[name]
		rows = append(rows, ChartRow{
			Category:         name,
			Total:            c.Total,
			Used:             c.Used,
			Available:        c.Available,
			UsageRate:        c.UsageRate,
			MonthlyUsageRate: c.MonthlyUsageRate,
			LowUsage:         c.NeedsUsageCheck(),
		})
	}
	return rows
}

// Slices returns each category's share of used budget in category order.
func Slices(b model.Budgets) []Slice {
	slices := make([]Slice, 0, len(b))
	for _, name := range b.Categories() {
		slices = append(slices, Slice{Category: name, Percent: b.UsedShare(name)})
	}
	return slices
}
