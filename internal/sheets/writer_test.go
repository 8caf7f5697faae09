package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/yesan/internal/model"
)

type fakeSheetsAPI struct {
	tabs     map[string][]string
	written  *sheets.ValueRange
	batches  []string
	cleared  []string
	created  int
	mu       sync.Mutex
	getCalls int
}

func newFakeSheetsAPI() *fakeSheetsAPI {
	return &fakeSheetsAPI{tabs: map[string][]string{}}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets")
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && path == "":
		f.created++
		f.tabs["new-sheet"] = []string{TabName}
		_, _ = io.WriteString(w, `{"spreadsheetId":"new-sheet","spreadsheetUrl":"https://example.test/new-sheet"}`)
	case r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/")
		tabs, ok := f.tabs[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		f.getCalls++
		resp := sheets.Spreadsheet{SpreadsheetId: id}
		for i, title := range tabs {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: title, SheetId: int64(40 + i)},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		f.batches = append(f.batches, string(body))
		if strings.Contains(string(body), "addSheet") {
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/"), ":batchUpdate")
			f.tabs[id] = append(f.tabs[id], TabName)
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		_ = json.Unmarshal(body, &vr)
		f.written = &vr
		_, _ = io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	return newWriterWithService(srv, cfg, nil)
}

func testBudgets() model.Budgets {
	return model.Budgets{
		"회의비": {
			Total:            decimal.NewFromInt(1000000),
			Used:             decimal.NewFromInt(250000),
			Available:        decimal.NewFromInt(750000),
			UsageRate:        25,
			MonthlyUsageRate: 30,
		},
		"복리후생비": {
			Total:            decimal.NewFromInt(2000000),
			Used:             decimal.NewFromInt(1500000),
			Available:        decimal.NewFromInt(500000),
			UsageRate:        75,
			MonthlyUsageRate: 90,
		},
	}
}

func TestWriter_WriteExistingSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	api.tabs["sheet-1"] = []string{TabName}

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, cfg)

	export := NewExport(testBudgets(), "분석 결과\n두번째 줄", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	id, err := w.Write(context.Background(), export)
	require.NoError(t, err)

	assert.Equal(t, "sheet-1", id)
	assert.Equal(t, 0, api.created)
	assert.Len(t, api.cleared, 1)
	require.NotNil(t, api.written)
	assert.Equal(t, "예산 현황 보고", api.written.Values[0][0])
	assert.Equal(t, "2025-03-14", api.written.Values[0][1])

	require.Len(t, api.batches, 1, "formatting request")
	assert.Contains(t, api.batches[0], `"sheetId":40`)
}

func TestWriter_AddsMissingTab(t *testing.T) {
	api := newFakeSheetsAPI()
	api.tabs["sheet-2"] = []string{"Sheet1"}

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-2"
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), NewExport(testBudgets(), "", time.Now()))
	require.NoError(t, err)

	require.Len(t, api.batches, 1)
	assert.Contains(t, api.batches[0], "addSheet")
	assert.Equal(t, []string{"Sheet1", TabName}, api.tabs["sheet-2"])
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	cfg := DefaultConfig()
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	id, err := w.Write(context.Background(), NewExport(testBudgets(), "", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)
	assert.Equal(t, 1, api.created)
}

func TestWriter_InaccessibleSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "missing"
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), NewExport(testBudgets(), "", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to access spreadsheet missing")
}

func TestPrepareValues(t *testing.T) {
	export := NewExport(testBudgets(), "첫 줄\n둘째 줄", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	export.Recommendations = []RecommendationRow{{
		Category:       "회의비",
		Recommendation: model.Recommendation{Action: model.ActionIncrease, Confidence: 0.8, Reasoning: "집행 부진"},
	}}

	values := prepareValues(export)

	assert.Equal(t, []any{"총 예산", "3000000"}, values[3])
	assert.Equal(t, "카테고리", values[budgetHeadRow][0])

	// Categories are sorted, so 복리후생비 precedes 회의비.
	first := values[headerRows]
	assert.Equal(t, "복리후생비", first[0])
	assert.Equal(t, "", first[7])
	second := values[headerRows+1]
	assert.Equal(t, "회의비", second[0])
	assert.Equal(t, "월 편성 50% 미만", second[7])
	assert.Equal(t, "14.3", second[6])

	var flat []string
	for _, row := range values {
		for _, cell := range row {
			if s, ok := cell.(string); ok {
				flat = append(flat, s)
			}
		}
	}
	assert.Contains(t, flat, "강화학습 추천")
	assert.Contains(t, flat, "증액")
	assert.Contains(t, flat, "AI 분석")
	assert.Contains(t, flat, "둘째 줄")
}

func TestPrepareValues_OmitsEmptySections(t *testing.T) {
	values := prepareValues(NewExport(testBudgets(), "  ", time.Now()))
	assert.Len(t, values, headerRows+2)
}
