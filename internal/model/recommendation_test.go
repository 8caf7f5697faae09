package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRLState(t *testing.T) {
	c := BudgetCategory{
		Total:     decimal.NewFromInt(1000),
		Used:      decimal.NewFromInt(250),
		Available: decimal.NewFromInt(750),
	}

	state := NewRLState(c, 70, 11)

	assert.InDelta(t, 75.0, state.AvailableRatio, 0.0001)
	assert.InDelta(t, 25.0, state.UsedRatio, 0.0001)
	assert.Equal(t, 70, state.UrgencyLevel)
	assert.Equal(t, 11, state.Month)
}

func TestNewRLState_ZeroTotal(t *testing.T) {
	state := NewRLState(BudgetCategory{}, 50, 1)
	assert.Zero(t, state.AvailableRatio)
	assert.Zero(t, state.UsedRatio)
}

func TestNextState(t *testing.T) {
	c := BudgetCategory{
		Total:     decimal.NewFromInt(1000),
		Used:      decimal.NewFromInt(500),
		Available: decimal.NewFromInt(500),
	}
	state := NewRLState(c, 40, 6)

	tests := []struct {
		name          string
		action        Action
		wantUsed      float64
		wantAvailable float64
	}{
		{name: "increase adds ten percent", action: ActionIncrease, wantUsed: 60, wantAvailable: 40},
		{name: "decrease removes five percent", action: ActionDecrease, wantUsed: 45, wantAvailable: 55},
		{name: "hold keeps usage", action: ActionHold, wantUsed: 50, wantAvailable: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := NextState(c, state, tt.action)
			assert.InDelta(t, tt.wantUsed, next.UsedRatio, 0.0001)
			assert.InDelta(t, tt.wantAvailable, next.AvailableRatio, 0.0001)
			assert.Equal(t, state.UrgencyLevel, next.UrgencyLevel)
			assert.Equal(t, state.Month, next.Month)
		})
	}
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"증액", "increase"} {
		a, err := ParseAction(in)
		require.NoError(t, err)
		assert.Equal(t, ActionIncrease, a)
	}

	a, err := ParseAction("keep")
	require.NoError(t, err)
	assert.Equal(t, ActionHold, a)

	_, err = ParseAction("double")
	assert.Error(t, err)
}

func TestRecommendRequest_FlattensState(t *testing.T) {
	req := RecommendRequest{
		RLState:        RLState{AvailableRatio: 40, UsedRatio: 60, UrgencyLevel: 80, Month: 3},
		ClaudeAnalysis: "분석",
	}

	out, err := json.Marshal(req)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, 40.0, fields["available_ratio"])
	assert.Equal(t, 80.0, fields["urgency_level"])
	assert.Equal(t, "분석", fields["claude_analysis"])
	assert.NotContains(t, fields, "RLState")
}

func TestRecommendation_DecodesKoreanQValues(t *testing.T) {
	raw := `{"action":"증액","confidence":87.5,"reasoning":"안전 장비 교체","q_values":{"감소":-1.2,"유지":0.4,"증액":2.5}}`

	var r Recommendation
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, ActionIncrease, r.Action)
	assert.InDelta(t, 2.5, r.QValues.Increase, 0.0001)
	assert.InDelta(t, -1.2, r.QValues.Decrease, 0.0001)
	assert.InDelta(t, 0.4, r.QValues.Hold, 0.0001)
}
