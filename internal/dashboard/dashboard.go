// Package dashboard holds the budget dashboard state: the fetched budgets,
// the LLM analysis, and the reinforcement-learning recommendation cycle.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
)

// User-facing dashboard messages.
const (
	AnalysisErrorMessage   = "AI 분석 중 오류가 발생했습니다. Bedrock 설정을 확인해주세요."
	LowUsageFlag           = "월 편성 50% 미만! 긴급 점검 필요"
	FeedbackSuccessMessage = "✅ 피드백이 성공적으로 반영되었습니다! 강화학습 모델이 업데이트되었습니다."
)

// Dashboard errors.
var (
	ErrNoAnalysis       = errors.New("report requires an analysis")
	ErrUnknownCategory  = errors.New("unknown budget category")
	ErrNoRecommendation = errors.New("no recommendation is open")
	ErrRewardRange      = fmt.Errorf("reward must be between %d and %d", model.MinReward, model.MaxReward)
	ErrUrgencyRange     = fmt.Errorf("urgency must be between %d and %d", model.MinUrgency, model.MaxUrgency)
)

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithClock sets the clock used for the RL month and report names.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) {
		d.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) {
		d.logger = l
	}
}

// WithFeedbackLog records accepted feedback in the local journal.
func WithFeedbackLog(s service.Storage) Option {
	return func(d *Dashboard) {
		d.feedbackLog = s
	}
}

// WithBudgetsObserver is called with every successfully fetched mapping.
func WithBudgetsObserver(fn func(model.Budgets)) Option {
	return func(d *Dashboard) {
		d.observe = fn
	}
}

// Dashboard is safe for concurrent use. Backend calls run without the lock
// held so a slow request never blocks rendering.
type Dashboard struct {
	backend        service.BudgetBackend
	feedbackLog    service.Storage
	logger         *slog.Logger
	now            func() time.Time
	observe        func(model.Budgets)
	budgets        model.Budgets
	recommendation *model.Recommendation
	state          model.RLState
	analysis       string
	selected       string
	urgency        int
	loading        bool
	analyzing      bool
	mu             sync.Mutex
}

// New creates a dashboard with no data loaded.
func New(backend service.BudgetBackend, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		urgency: 50,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh fetches the budgets and replaces the cached mapping. Categories
// behind their monthly pace are then reported to the backend; those
// failures are only logged.
func (d *Dashboard) Refresh(ctx context.Context) (model.Budgets, error) {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	budgets, err := d.backend.Budgets(ctx)

	d.mu.Lock()
	d.loading = false
	if err != nil {
		d.mu.Unlock()
		d.logger.Error("Failed to fetch budgets", "error", err)
		return nil, fmt.Errorf("fetch budgets: %w", err)
	}
	d.budgets = budgets
	d.mu.Unlock()

	if d.observe != nil {
		d.observe(budgets)
	}

	for _, name := range budgets.Categories() {
		c := budgets[name]
		if !c.NeedsUsageCheck() {
			continue
		}
		if err := d.backend.CheckUsage(ctx, name, c.MonthlyUsageRate); err != nil {
			d.logger.Warn("Usage check failed", "category", name, "monthly_usage_rate", c.MonthlyUsageRate, "error", err)
		}
	}

	d.logger.Debug("Budgets refreshed", "categories", len(budgets))
	return budgets, nil
}

// Analyze requests a budget analysis. On failure the analysis becomes
// AnalysisErrorMessage and the error is returned alongside it.
func (d *Dashboard) Analyze(ctx context.Context, userContext string) (string, error) {
	d.mu.Lock()
	budgets := d.budgets
	d.analyzing = true
	d.mu.Unlock()

	analysis, err := d.backend.AnalyzeBudget(ctx, budgets, userContext)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.analyzing = false
	if err != nil {
		d.logger.Error("Budget analysis failed", "error", err)
		d.analysis = AnalysisErrorMessage
		return d.analysis, fmt.Errorf("analyze budgets: %w", err)
	}
	d.analysis = analysis
	return analysis, nil
}

// SetUrgency sets the urgency level used by the next recommendation.
func (d *Dashboard) SetUrgency(level int) error {
	if level < model.MinUrgency || level > model.MaxUrgency {
		return fmt.Errorf("%w: %d", ErrUrgencyRange, level)
	}
	d.mu.Lock()
	d.urgency = level
	d.mu.Unlock()
	return nil
}

// Recommend asks the recommender about a category and opens the RL panel
// on it.
func (d *Dashboard) Recommend(ctx context.Context, category string) (model.Recommendation, error) {
	d.mu.Lock()
	c, ok := d.budgets[category]
	if !ok {
		d.mu.Unlock()
		return model.Recommendation{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	state := model.NewRLState(c, d.urgency, int(d.now().Month()))
	req := model.RecommendRequest{RLState: state, ClaudeAnalysis: d.analysis}
	d.mu.Unlock()

	rec, err := d.backend.Recommend(ctx, req)
	if err != nil {
		d.logger.Error("Recommendation failed", "category", category, "error", err)
		return model.Recommendation{}, fmt.Errorf("recommend %s: %w", category, err)
	}

	d.mu.Lock()
	d.selected = category
	d.state = state
	d.recommendation = &rec
	d.mu.Unlock()

	d.logger.Info("Recommendation received", "category", category, "action", rec.Action, "confidence", rec.Confidence)
	return rec, nil
}

// Feedback reports the outcome of an action for the open recommendation.
// On success the panel closes and the recommendation is cleared.
func (d *Dashboard) Feedback(ctx context.Context, action model.Action, reward int) error {
	if reward < model.MinReward || reward > model.MaxReward {
		return fmt.Errorf("%w: %d", ErrRewardRange, reward)
	}

	d.mu.Lock()
	if d.recommendation == nil {
		d.mu.Unlock()
		return ErrNoRecommendation
	}
	category := d.selected
	c := d.budgets[category]
	// The state reflects the urgency and month at the time of feedback.
	state := model.NewRLState(c, d.urgency, int(d.now().Month()))
	d.state = state
	fb := model.Feedback{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: model.NextState(c, state, action),
	}
	d.mu.Unlock()

	if err := d.backend.SubmitFeedback(ctx, fb); err != nil {
		d.logger.Error("Feedback failed", "category", category, "error", err)
		return fmt.Errorf("submit feedback: %w", err)
	}

	d.ClosePanel()

	if d.feedbackLog != nil {
		rec := &model.FeedbackRecord{RecordedAt: d.now(), Category: category, Feedback: fb}
		if err := d.feedbackLog.SaveFeedback(ctx, rec); err != nil {
			d.logger.Warn("Failed to record feedback locally", "category", category, "error", err)
		}
	}
	return nil
}

// ClosePanel closes the RL panel and drops the recommendation.
func (d *Dashboard) ClosePanel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recommendation = nil
	d.selected = ""
	d.state = model.RLState{}
}
