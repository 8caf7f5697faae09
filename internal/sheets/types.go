package sheets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// BudgetRow represents one category row of the budget tab.
type BudgetRow struct {
	Category         string
	Total            decimal.Decimal
	Used             decimal.Decimal
	Available        decimal.Decimal
	UsageRate        float64
	MonthlyUsageRate float64
	UsedShare        float64
	LowUsage         bool
}

// RecommendationRow is the recommender's latest answer for one category.
type RecommendationRow struct {
	Category       string
	Recommendation model.Recommendation
}

// Export holds everything written to the spreadsheet.
type Export struct {
	GeneratedAt     time.Time
	Totals          model.BudgetTotals
	Analysis        string
	Rows            []BudgetRow
	Recommendations []RecommendationRow
}

// NewExport builds an export from a budget snapshot, in category order.
func NewExport(budgets model.Budgets, analysis string, at time.Time) Export {
	export := Export{
		GeneratedAt: at,
		Totals:      budgets.Totals(),
		Analysis:    analysis,
		Rows:        make([]BudgetRow, 0, len(budgets)),
	}
	for _, name := range budgets.Categories() {
		c := budgets[name]
		export.Rows = append(export.Rows, BudgetRow{
			Category:         name,
			Total:            c.Total,
			Used:             c.Used,
			Available:        c.Available,
			UsageRate:        c.UsageRate,
			MonthlyUsageRate: c.MonthlyUsageRate,
			UsedShare:        budgets.UsedShare(name),
			LowUsage:         c.NeedsUsageCheck(),
		})
	}
	return export
}
