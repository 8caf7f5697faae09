package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
)

type recordedRequest struct {
	body   map[string]any
	method string
	path   string
}

type recorder struct {
	requests []recordedRequest
	mu       sync.Mutex
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recordedRequest{method: r.Method, path: r.URL.Path}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.body)
		}
		rec.mu.Lock()
		rec.requests = append(rec.requests, req)
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestClient_Budgets(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"회의비": {"total": 5000000, "used": 2000000, "available": 3000000, "usage_rate": 40, "monthly_usage_rate": 35.5},
			"복리후생비": {"total": 3000000, "used": 2500000, "available": 500000, "usage_rate": 83.3, "monthly_usage_rate": 90}
		}`)
	})

	budgets, err := New(srv.URL).Budgets(context.Background())
	require.NoError(t, err)

	require.Len(t, budgets, 2)
	assert.True(t, decimal.NewFromInt(3000000).Equal(budgets["회의비"].Available))
	assert.InDelta(t, 35.5, budgets["회의비"].MonthlyUsageRate, 0.001)
	require.Len(t, reqs.all(), 1)
	assert.Equal(t, http.MethodGet, reqs.all()[0].method)
	assert.Equal(t, "/api/budgets", reqs.all()[0].path)
}

func TestClient_AnalyzeBudget(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"analysis": "회의비 집행이 부진합니다."}`)
	})

	budgets := model.Budgets{"회의비": {Total: decimal.NewFromInt(100), Used: decimal.NewFromInt(10), Available: decimal.NewFromInt(90)}}
	analysis, err := New(srv.URL).AnalyzeBudget(context.Background(), budgets, "4분기 행사 예정")
	require.NoError(t, err)

	assert.Equal(t, "회의비 집행이 부진합니다.", analysis)
	req := reqs.all()[0]
	assert.Equal(t, "/api/budget/analysis", req.path)
	assert.Equal(t, "4분기 행사 예정", req.body["user_context"])
	category := req.body["budgets"].(map[string]any)["회의비"].(map[string]any)
	assert.Equal(t, 100.0, category["total"], "amounts are sent as JSON numbers")
}

func TestClient_CheckUsage(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, New(srv.URL).CheckUsage(context.Background(), "회의비", 35.5))
	req := reqs.all()[0]
	assert.Equal(t, "/api/budget/check-usage", req.path)
	assert.Equal(t, "회의비", req.body["budget_type"])
	assert.Equal(t, 35.5, req.body["usage_rate"])
}

func TestClient_Recommend(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"action": "증액", "confidence": 0.82, "reasoning": "잔액 충분",
			"q_values": {"감소": -1.5, "유지": 0.2, "증액": 2.4}}`)
	})

	rec, err := New(srv.URL).Recommend(context.Background(), model.RecommendRequest{
		RLState:        model.RLState{AvailableRatio: 60, UsedRatio: 40, UrgencyLevel: 70, Month: 3},
		ClaudeAnalysis: "분석",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ActionIncrease, rec.Action)
	assert.InDelta(t, 2.4, rec.QValues.Increase, 0.001)
	assert.InDelta(t, -1.5, rec.QValues.Decrease, 0.001)

	req := reqs.all()[0]
	assert.Equal(t, "/api/rl/recommend", req.path)
	assert.Equal(t, 60.0, req.body["available_ratio"], "state is flattened into the body")
	assert.Equal(t, 70.0, req.body["urgency_level"])
	assert.Equal(t, "분석", req.body["claude_analysis"])
}

func TestClient_SubmitFeedback(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "ok"}`)
	})

	err := New(srv.URL).SubmitFeedback(context.Background(), model.Feedback{
		Action:    model.ActionDecrease,
		State:     model.RLState{UsedRatio: 40, Month: 3},
		NextState: model.RLState{UsedRatio: 35, Month: 3},
		Reward:    -20,
	})
	require.NoError(t, err)

	req := reqs.all()[0]
	assert.Equal(t, "/api/rl/feedback", req.path)
	assert.Equal(t, "감소", req.body["action"])
	assert.Equal(t, -20.0, req.body["reward"])
	assert.Equal(t, 35.0, req.body["next_state"].(map[string]any)["used_ratio"])
}

func TestClient_BudgetReport(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "예산 보고서\n")
	})

	data, err := New(srv.URL).BudgetReport(context.Background(), model.Budgets{}, "분석 본문")
	require.NoError(t, err)
	assert.Equal(t, "예산 보고서\n", string(data))
	assert.Equal(t, "분석 본문", reqs.all()[0].body["analysis"])
}

func TestClient_Anomalies(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{
			"voucher": {"voucher_id": "V2025-1234", "amount": 1500000, "vendor": "거래처", "approval_status": true},
			"anomalies": [{"type": "payment_delay", "severity": "high", "message": "지급 지연", "recommendation": "확인"}],
			"max_severity": "high"
		}]`)
	})

	results, err := New(srv.URL).Anomalies(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "V2025-1234", results[0].Voucher.VoucherID)
	assert.Equal(t, model.SeverityHigh, results[0].MaxSeverity)
	assert.Equal(t, model.FlexString("true"), results[0].Voucher.ApprovalStatus)
}

func TestClient_SendAlertEchoesVoucher(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "sent"}`)
	})

	var result model.AnomalyResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"voucher": {"voucher_id": "V2025-9999", "custom_field": "kept"},
		"anomalies": [{"type": "account_mismatch", "severity": "critical", "message": "m", "recommendation": "r"}],
		"max_severity": "critical"
	}`), &result))

	require.NoError(t, New(srv.URL).SendAlert(context.Background(), result))

	req := reqs.all()[0]
	assert.Equal(t, "/api/vouchers/send-alert", req.path)
	voucher := req.body["voucher"].(map[string]any)
	assert.Equal(t, "kept", voucher["custom_field"], "unknown voucher fields survive the round trip")
	assert.Len(t, req.body["anomalies"], 1)
}

func TestClient_AskUsesQnABaseURL(t *testing.T) {
	budgetSrv, budgetReqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	qnaSrv, qnaReqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"answer": "영수증과 세금계산서가 필요합니다."}`)
	})

	client := New(budgetSrv.URL, WithQnABaseURL(qnaSrv.URL))
	answer, err := client.Ask(context.Background(), "전표 작성 시 필수 첨부 서류는?")
	require.NoError(t, err)

	assert.Equal(t, "영수증과 세금계산서가 필요합니다.", answer)
	assert.Empty(t, budgetReqs.all())
	require.Len(t, qnaReqs.all(), 1)
	assert.Equal(t, "/api/qna", qnaReqs.all()[0].path)
	assert.Equal(t, "전표 작성 시 필수 첨부 서류는?", qnaReqs.all()[0].body["question"])
}

func TestClient_Errors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadRequest)
		})
		_, err := New(srv.URL).Budgets(context.Background())
		assert.ErrorIs(t, err, common.ErrBackendStatus)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"analysis": `)
		})
		_, err := New(srv.URL).AnalyzeBudget(context.Background(), model.Budgets{}, "")
		assert.ErrorIs(t, err, common.ErrBackendResponse)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url).Anomalies(context.Background())
		assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(srv.URL).Budgets(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_RetriesReadsOnly(t *testing.T) {
	var calls atomic.Int32
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"answer": "ok"}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})

	client := New(srv.URL, WithRetry(service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}))

	_, err := client.Budgets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = client.Ask(context.Background(), "질문")
	assert.ErrorIs(t, err, common.ErrBackendStatus)
	assert.Equal(t, int32(1), calls.Load(), "posts are never retried")
}
