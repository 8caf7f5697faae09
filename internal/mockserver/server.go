// Package mockserver is a local fake of the budget backend's REST contract,
// filled with generated data. It backs `yesan mock-backend` and tests.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// Categories are the budget categories the fake backend reports.
var Categories = []string{"회의비", "업무추진비", "복리후생비"}

var anomalyTypes = []struct {
	Type           string
	Message        string
	Recommendation string
}{
	{"payment_delay", "거래일과 지급예정일 간격이 40일을 초과합니다", "지급 일정을 재검토하세요"},
	{"exchange_rate_error", "적용 환율이 기준환율과 다릅니다", "세금계산서 거래일 기준환율로 수정하세요"},
	{"period_mismatch", "적요의 기간이 거래일자와 다릅니다", "적요를 수정하세요"},
	{"account_mismatch", "등록 계좌와 세금계산서 계좌가 다릅니다", "거래처 계좌를 확인하세요"},
	{"invoice_mismatch", "Invoice 금액과 세금계산서 금액이 다릅니다", "증빙 서류를 대조하세요"},
}

// Server holds the generated data and records what clients posted.
type Server struct {
	faker     *gofakeit.Faker
	logger    *slog.Logger
	budgets   model.Budgets
	anomalies []model.AnomalyResult
	feedback  []model.Feedback
	alerts    []model.AlertRequest
	checks    []string
	mu        sync.Mutex
}

// New generates a data set from seed. The same seed yields the same data.
func New(seed int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{faker: gofakeit.New(seed), logger: logger}
	s.budgets = s.generateBudgets()
	s.anomalies = s.generateAnomalies(8)
	return s
}

func (s *Server) generateBudgets() model.Budgets {
	budgets := make(model.Budgets, len(Categories))
	for _, name := range Categories {
		total := int64(s.faker.Number(10, 50)) * 1000000
		used := total * int64(s.faker.Number(10, 90)) / 100
		budgets[name] = model.BudgetCategory{
			Total:            decimal.NewFromInt(total),
			Used:             decimal.NewFromInt(used),
			Available:        decimal.NewFromInt(total - used),
			UsageRate:        float64(used) / float64(total) * 100,
			MonthlyUsageRate: float64(s.faker.Number(20, 120)),
		}
	}
	return budgets
}

func severityRank(sev model.Severity) int {
	for i, s := range model.Severities {
		if s == sev {
			return len(model.Severities) - i
		}
	}
	return 0
}

func (s *Server) generateAnomalies(n int) []model.AnomalyResult {
	results := make([]model.AnomalyResult, 0, n)
	for i := 0; i < n; i++ {
		date := s.faker.DateRange(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
		snap := model.VoucherSnapshot{
			VoucherID:         fmt.Sprintf("V2025-%04d", 1000+i),
			Creator:           s.faker.Name(),
			TransactionDate:   date.Format(model.DateLayout),
			PaymentDueDate:    date.AddDate(0, 0, s.faker.Number(5, 60)).Format(model.DateLayout),
			Vendor:            s.faker.Company(),
			Currency:          model.Currencies[s.faker.Number(0, len(model.Currencies)-1)],
			Description:       fmt.Sprintf("%d월 %s", int(date.Month()), s.faker.BuzzWord()),
			ApprovalStatus:    model.FlexString(s.faker.RandomString([]string{"승인", "대기", "반려"})),
			AccountingCreated: model.FlexString(fmt.Sprint(s.faker.Bool())),
			ValidationStatus:  model.FlexString(s.faker.RandomString([]string{"통과", "실패"})),
			Amount:            decimal.NewFromInt(int64(s.faker.Number(100, 9000)) * 1000),
		}
		if snap.Currency != model.BaseCurrency {
			snap.ExchangeRate = decimal.NewNullDecimal(decimal.NewFromFloat(s.faker.Float64Range(900, 1500)).Round(2))
			snap.ExchangeRateDate = snap.TransactionDate
		}

		count := s.faker.Number(1, 3)
		var anomalies []model.Anomaly
		var maxSev model.Severity
		for j := 0; j < count; j++ {
			kind := anomalyTypes[s.faker.Number(0, len(anomalyTypes)-1)]
			sev := model.Severities[s.faker.Number(0, len(model.Severities)-1)]
			anomalies = append(anomalies, model.Anomaly{
				Type:           kind.Type,
				Severity:       sev,
				Message:        kind.Message,
				Recommendation: kind.Recommendation,
			})
			if severityRank(sev) > severityRank(maxSev) {
				maxSev = sev
			}
		}

		raw, _ := json.Marshal(snap)
		results = append(results, model.AnomalyResult{
			MaxSeverity: maxSev,
			RawVoucher:  raw,
			Voucher:     snap,
			Anomalies:   anomalies,
		})
	}
	return results
}

// Router returns the backend routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/budgets", s.handleBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budget/analysis", s.handleAnalysis).Methods(http.MethodPost)
	api.HandleFunc("/budget/check-usage", s.handleCheckUsage).Methods(http.MethodPost)
	api.HandleFunc("/budget/report", s.handleReport).Methods(http.MethodPost)
	api.HandleFunc("/rl/recommend", s.handleRecommend).Methods(http.MethodPost)
	api.HandleFunc("/rl/feedback", s.handleFeedback).Methods(http.MethodPost)
	api.HandleFunc("/vouchers/anomalies", s.handleAnomalies).Methods(http.MethodGet)
	api.HandleFunc("/vouchers/send-alert", s.handleSendAlert).Methods(http.MethodPost)
	api.HandleFunc("/qna", s.handleQnA).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Mock backend request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// ListenAndServe serves the routes on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("Mock backend listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Feedback returns every feedback body received.
func (s *Server) Feedback() []model.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Feedback(nil), s.feedback...)
}

// Alerts returns every alert body received.
func (s *Server) Alerts() []model.AlertRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AlertRequest(nil), s.alerts...)
}

// UsageChecks returns the categories reported as behind pace.
func (s *Server) UsageChecks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.checks...)
}

// Budgets returns the generated budgets.
func (s *Server) Budgets() model.Budgets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}
