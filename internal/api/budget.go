package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Veraticus/yesan/internal/model"
)

type analysisRequest struct {
	Budgets     model.Budgets `json:"budgets"`
	UserContext string        `json:"user_context"`
}

type analysisResponse struct {
	Analysis string `json:"analysis"`
}

type checkUsageRequest struct {
	BudgetType string  `json:"budget_type"`
	UsageRate  float64 `json:"usage_rate"`
}

type reportRequest struct {
	Budgets  model.Budgets `json:"budgets"`
	Analysis string        `json:"analysis"`
}

// Budgets fetches every budget category.
func (c *Client) Budgets(ctx context.Context) (model.Budgets, error) {
	var budgets model.Budgets
	if err := c.getJSON(ctx, "/api/budgets", &budgets); err != nil {
		return nil, err
	}
	if budgets == nil {
		budgets = model.Budgets{}
	}
	return budgets, nil
}

// AnalyzeBudget asks the backend for a natural-language analysis.
func (c *Client) AnalyzeBudget(ctx context.Context, budgets model.Budgets, userContext string) (string, error) {
	var resp analysisResponse
	req := analysisRequest{Budgets: budgets, UserContext: userContext}
	if err := c.postJSON(ctx, c.baseURL, "/api/budget/analysis", req, &resp); err != nil {
		return "", err
	}
	return resp.Analysis, nil
}

// CheckUsage notifies the backend that a category is behind its monthly pace.
func (c *Client) CheckUsage(ctx context.Context, budgetType string, usageRate float64) error {
	return c.postJSON(ctx, c.baseURL, "/api/budget/check-usage",
		checkUsageRequest{BudgetType: budgetType, UsageRate: usageRate}, nil)
}

// Recommend requests a reinforcement-learning recommendation.
func (c *Client) Recommend(ctx context.Context, req model.RecommendRequest) (model.Recommendation, error) {
	var rec model.Recommendation
	if err := c.postJSON(ctx, c.baseURL, "/api/rl/recommend", req, &rec); err != nil {
		return model.Recommendation{}, err
	}
	return rec, nil
}

// SubmitFeedback reports the outcome of an action to the recommender.
func (c *Client) SubmitFeedback(ctx context.Context, feedback model.Feedback) error {
	return c.postJSON(ctx, c.baseURL, "/api/rl/feedback", feedback, nil)
}

// BudgetReport downloads the generated report.
func (c *Client) BudgetReport(ctx context.Context, budgets model.Budgets, analysis string) ([]byte, error) {
	body, _, err := c.BudgetReportStream(ctx, budgets, analysis)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return data, nil
}

// BudgetReportStream starts the report download and returns the body and
// its length (-1 when unknown). The caller closes the body.
func (c *Client) BudgetReportStream(ctx context.Context, budgets model.Budgets, analysis string) (io.ReadCloser, int64, error) {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/budget/report", reportRequest{Budgets: budgets, Analysis: analysis})
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}
