// Package model defines the core domain models used throughout the application.
package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend reads budgets back as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// LowUsageThreshold is the monthly usage rate (percent) under which a
// category is flagged for an urgent review.
const LowUsageThreshold = 50.0

// BudgetCategory is one category's allocation as reported by the backend.
// Available is expected to equal Total - Used; the backend enforces it.
type BudgetCategory struct {
	Total            decimal.Decimal `json:"total"`
	Used             decimal.Decimal `json:"used"`
	Available        decimal.Decimal `json:"available"`
	UsageRate        float64         `json:"usage_rate"`
	MonthlyUsageRate float64         `json:"monthly_usage_rate"`
}

// NeedsUsageCheck reports whether the category is behind its monthly pace.
func (c BudgetCategory) NeedsUsageCheck() bool {
	return c.MonthlyUsageRate < LowUsageThreshold
}

// Budgets maps a category name to its allocation.
type Budgets map[string]BudgetCategory

// BudgetTotals holds the aggregate figures across every category.
type BudgetTotals struct {
	Total     decimal.Decimal
	Used      decimal.Decimal
	Available decimal.Decimal
}

// Categories returns the category names in a stable order.
func (b Budgets) Categories() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Totals sums every category.
func (b Budgets) Totals() BudgetTotals {
	var t BudgetTotals
	for _, c := range b {
		t.Total = t.Total.Add(c.Total)
		t.Used = t.Used.Add(c.Used)
		t.Available = t.Available.Add(c.Available)
	}
	return t
}

// UsedShare returns the category's share of all used budget as a percentage.
// It is zero when nothing has been used yet.
func (b Budgets) UsedShare(category string) float64 {
	c, ok := b[category]
	if !ok {
		return 0
	}
	used := b.Totals().Used
	if used.IsZero() {
		return 0
	}
	return c.Used.Div(used).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
