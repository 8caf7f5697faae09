package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action is a budget adjustment the recommender can propose.
type Action string

// Budget adjustment actions. The backend uses the Korean labels as keys.
const (
	ActionDecrease Action = "감소"
	ActionHold     Action = "유지"
	ActionIncrease Action = "증액"
)

// Actions lists every action in display order.
var Actions = []Action{ActionIncrease, ActionHold, ActionDecrease}

// ParseAction validates a user supplied action label.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionDecrease, ActionHold, ActionIncrease:
		return Action(s), nil
	case "decrease":
		return ActionDecrease, nil
	case "hold", "keep":
		return ActionHold, nil
	case "increase":
		return ActionIncrease, nil
	}
	return "", fmt.Errorf("unknown action %q (want 증액, 유지 or 감소)", s)
}

// RLState is the observation sent to the reinforcement-learning recommender.
type RLState struct {
	AvailableRatio float64 `json:"available_ratio"`
	UsedRatio      float64 `json:"used_ratio"`
	UrgencyLevel   int     `json:"urgency_level"`
	Month          int     `json:"month"`
}

// NewRLState derives the state for a category. Ratios are percentages of
// the category total; a zero total yields zero ratios.
func NewRLState(c BudgetCategory, urgency, month int) RLState {
	return RLState{
		AvailableRatio: percentOf(c.Available, c.Total),
		UsedRatio:      percentOf(c.Used, c.Total),
		UrgencyLevel:   urgency,
		Month:          month,
	}
}

// NextState simulates the state after an action was carried out:
// an increase adds 10% of the total to the used amount, a decrease
// removes 5%, and holding leaves it unchanged.
func NextState(c BudgetCategory, state RLState, action Action) RLState {
	used := c.Used
	switch action {
	case ActionIncrease:
		used = used.Add(c.Total.Mul(decimal.NewFromFloat(0.1)))
	case ActionDecrease:
		used = used.Sub(c.Total.Mul(decimal.NewFromFloat(0.05)))
	}

	next := state
	next.UsedRatio = percentOf(used, c.Total)
	next.AvailableRatio = percentOf(c.Total.Sub(used), c.Total)
	return next
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// QValues holds the recommender's value estimate for each action.
type QValues struct {
	Decrease float64 `json:"감소"`
	Hold     float64 `json:"유지"`
	Increase float64 `json:"증액"`
}

// Recommendation is the recommender's answer for one category.
type Recommendation struct {
	Action     Action  `json:"action"`
	Reasoning  string  `json:"reasoning"`
	QValues    QValues `json:"q_values"`
	Confidence float64 `json:"confidence"`
}

// RecommendRequest is the body of a recommendation request.
type RecommendRequest struct {
	RLState
	ClaudeAnalysis string `json:"claude_analysis"`
}

// Feedback reports the outcome of an action back to the recommender.
type Feedback struct {
	Action    Action  `json:"action"`
	State     RLState `json:"state"`
	NextState RLState `json:"next_state"`
	Reward    int     `json:"reward"`
}

// Reward and urgency bounds accepted by the dashboard.
const (
	MinReward  = -100
	MaxReward  = 100
	MinUrgency = 0
	MaxUrgency = 100
)
