// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/yesan/internal/model"
)

// BudgetBackend covers the budget, analysis, report and recommender endpoints.
type BudgetBackend interface {
	Budgets(ctx context.Context) (model.Budgets, error)
	AnalyzeBudget(ctx context.Context, budgets model.Budgets, userContext string) (string, error)
	CheckUsage(ctx context.Context, budgetType string, usageRate float64) error
	Recommend(ctx context.Context, req model.RecommendRequest) (model.Recommendation, error)
	SubmitFeedback(ctx context.Context, feedback model.Feedback) error
	BudgetReport(ctx context.Context, budgets model.Budgets, analysis string) ([]byte, error)
}

// AnomalyBackend covers the anomaly listing and alert endpoints.
type AnomalyBackend interface {
	Anomalies(ctx context.Context) ([]model.AnomalyResult, error)
	SendAlert(ctx context.Context, result model.AnomalyResult) error
}

// QnABackend answers regulation questions.
type QnABackend interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Backend is the full REST contract of the budget service.
type Backend interface {
	BudgetBackend
	AnomalyBackend
	QnABackend
}

// VoucherFilter narrows voucher journal queries.
type VoucherFilter struct {
	Since   *time.Time
	Creator string
	Limit   int
}

// Storage defines the contract for the local journal.
type Storage interface {
	// Voucher journal
	SaveVoucher(ctx context.Context, record *model.VoucherRecord) error
	GetVoucher(ctx context.Context, id string) (*model.VoucherRecord, error)
	VoucherExists(ctx context.Context, id string) (bool, error)
	ListVouchers(ctx context.Context, filter VoucherFilter) ([]model.VoucherRecord, error)

	// RL feedback log
	SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error
	ListFeedback(ctx context.Context, limit int) ([]model.FeedbackRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
