package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/service"
)

// TabName is the sheet every export is written to.
const TabName = "예산 현황"

// Writer exports budget snapshots to a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriterWithService(srv, config, logger), nil
}

func newWriterWithService(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{service: srv, config: config, logger: logger}
}

// Write replaces the budget tab with export and returns the spreadsheet id.
func (w *Writer) Write(ctx context.Context, export Export) (string, error) {
	w.logger.Info("starting budget export",
		"categories", len(export.Rows),
		"generated_at", export.GeneratedAt.Format(time.DateOnly))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := prepareValues(export)

	retryOpts := service.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(export.Rows))
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("budget export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return spreadsheetID, nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		ss, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		if !hasTab(ss) {
			if err := w.addTab(ctx, ss.SpreadsheetId); err != nil {
				return "", err
			}
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: TabName}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

func hasTab(ss *sheets.Spreadsheet) bool {
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == TabName {
			return true
		}
	}
	return false
}

func (w *Writer) addTab(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: TabName}}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to add sheet %q: %w", TabName, err)
	}
	w.logger.Info("added budget tab", "spreadsheet_id", spreadsheetID)
	return nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, TabName+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// Row offsets used by prepareValues and applyFormatting.
const (
	headerRows     = 8
	budgetHeadRow  = 7
	numericColumns = 4
)

func prepareValues(export Export) [][]any {
	values := make([][]any, 0, headerRows+len(export.Rows)+len(export.Recommendations)+8)

	values = append(values,
		[]any{"예산 현황 보고", export.GeneratedAt.Format(time.DateOnly)},
		[]any{},
		[]any{"요약"},
		[]any{"총 예산", export.Totals.Total.String()},
		[]any{"사용액", export.Totals.Used.String()},
		[]any{"잔액", export.Totals.Available.String()},
		[]any{},
		[]any{"카테고리", "총 예산", "사용액", "잔액", "사용률(%)", "월 사용률(%)", "사용 비중(%)", "점검"},
	)

	for _, row := range export.Rows {
		flag := ""
		if row.LowUsage {
			flag = "월 편성 50% 미만"
		}
		values = append(values, []any{
			row.Category,
			row.Total.String(),
			row.Used.String(),
			row.Available.String(),
			fmt.Sprintf("%.1f", row.UsageRate),
			fmt.Sprintf("%.1f", row.MonthlyUsageRate),
			fmt.Sprintf("%.1f", row.UsedShare),
			flag,
		})
	}

	if len(export.Recommendations) > 0 {
		values = append(values,
			[]any{},
			[]any{"강화학습 추천"},
			[]any{"카테고리", "추천", "신뢰도", "근거"},
		)
		for _, r := range export.Recommendations {
			values = append(values, []any{
				r.Category,
				string(r.Recommendation.Action),
				fmt.Sprintf("%.2f", r.Recommendation.Confidence),
				r.Recommendation.Reasoning,
			})
		}
	}

	if strings.TrimSpace(export.Analysis) != "" {
		values = append(values, []any{}, []any{"AI 분석"})
		for _, line := range strings.Split(export.Analysis, "\n") {
			values = append(values, []any{line})
		}
	}

	return values
}

func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	valueRange := &sheets.ValueRange{Values: values}

	_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, TabName+"!A1", valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write values: %w", err)
	}

	w.logger.Debug("wrote values", "rows", len(values))
	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, budgetRows int) error {
	sheetID, err := w.sheetID(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    budgetHeadRow,
					EndRowIndex:      budgetHeadRow + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   8,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    budgetHeadRow + 1,
					EndRowIndex:      int64(headerRows + budgetRows),
					StartColumnIndex: 1,
					EndColumnIndex:   numericColumns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "₩#,##0"},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   8,
				},
			},
		},
	}

	_, err = w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

func (w *Writer) sheetID(ctx context.Context, spreadsheetID string) (int64, error) {
	ss, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == TabName {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", TabName)
}
