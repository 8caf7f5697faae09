package mockserver

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/yesan/internal/model"
)

func (s *Server) handleBudgets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Budgets())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budgets     model.Budgets `json:"budgets"`
		UserContext string        `json:"user_context"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	lines := []string{"예산 분석 결과"}
	for _, name := range req.Budgets.Categories() {
		c := req.Budgets[name]
		line := fmt.Sprintf("- %s: 집행률 %.1f%%, 월 목표 대비 %.0f%%", name, c.UsageRate, c.MonthlyUsageRate)
		if c.NeedsUsageCheck() {
			line += " (집행 부진)"
		}
		lines = append(lines, line)
	}
	if req.UserContext != "" {
		lines = append(lines, "참고 사항: "+req.UserContext)
	}

	s.mu.Lock()
	lines = append(lines, s.faker.Sentence(8))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"analysis": joinLines(lines...)})
}

func (s *Server) handleCheckUsage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BudgetType string  `json:"budget_type"`
		UsageRate  float64 `json:"usage_rate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BudgetType == "" {
		writeError(w, http.StatusBadRequest, "budget_type is required")
		return
	}

	s.mu.Lock()
	s.checks = append(s.checks, req.BudgetType)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "notified", "budget_type": req.BudgetType})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budgets  model.Budgets `json:"budgets"`
		Analysis string        `json:"analysis"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "예산 보고서 (%s)\n\n", time.Now().Format(model.DateLayout))
	totals := req.Budgets.Totals()
	fmt.Fprintf(&b, "총 예산: %s원\n사용: %s원\n잔액: %s원\n\n", totals.Total, totals.Used, totals.Available)
	for _, name := range req.Budgets.Categories() {
		c := req.Budgets[name]
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", name, c.Total, c.Used, c.Available)
	}
	fmt.Fprintf(&b, "\n%s\n", req.Analysis)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req model.RecommendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Under-spent categories lean towards a decrease, urgent ones towards
	// an increase.
	s.mu.Lock()
	q := model.QValues{
		Decrease: (req.AvailableRatio-50)/10 + s.faker.Float64Range(-1, 1),
		Hold:     s.faker.Float64Range(-1, 1),
		Increase: float64(req.UrgencyLevel-50)/10 + (req.UsedRatio-50)/10 + s.faker.Float64Range(-1, 1),
	}
	s.mu.Unlock()

	action, best := model.ActionHold, q.Hold
	if q.Increase > best {
		action, best = model.ActionIncrease, q.Increase
	}
	if q.Decrease > best {
		action, best = model.ActionDecrease, q.Decrease
	}

	// Softmax share of the chosen action.
	sum := math.Exp(q.Decrease) + math.Exp(q.Hold) + math.Exp(q.Increase)
	confidence := math.Exp(best) / sum

	writeJSON(w, http.StatusOK, model.Recommendation{
		Action:     action,
		Confidence: confidence,
		QValues:    q,
		Reasoning:  fmt.Sprintf("사용률 %.1f%%, 긴급도 %d 기준으로 %s을(를) 권장합니다.", req.UsedRatio, req.UrgencyLevel, action),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb model.Feedback
	if !decodeBody(w, r, &fb) {
		return
	}
	if _, err := model.ParseAction(string(fb.Action)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fb.Reward < model.MinReward || fb.Reward > model.MaxReward {
		writeError(w, http.StatusBadRequest, "reward out of range")
		return
	}

	s.mu.Lock()
	s.feedback = append(s.feedback, fb)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	results := s.anomalies
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSendAlert(w http.ResponseWriter, r *http.Request) {
	var req model.AlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Voucher) == 0 {
		writeError(w, http.StatusBadRequest, "voucher is required")
		return
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleQnA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	s.mu.Lock()
	detail := s.faker.Sentence(10)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"answer": fmt.Sprintf("'%s'에 대한 사내 규정 안내입니다.\n%s", req.Question, detail),
	})
}
