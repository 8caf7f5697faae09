package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/yesan/internal/api"
	"github.com/Veraticus/yesan/internal/config"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/metrics"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
	"github.com/Veraticus/yesan/internal/storage"
	"github.com/Veraticus/yesan/internal/validation"
	"github.com/Veraticus/yesan/internal/voucher"
)

// app is everything a command needs, built once from the configuration.
type app struct {
	cfg     config.App
	client  *api.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
	store   *storage.SQLiteStorage
}

// newApp resolves the configuration and builds the backend client. The
// metrics listener starts when metrics.addr is set.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
		logger:  slog.Default(),
	}

	a.client = api.New(cfg.API.BaseURL,
		api.WithQnABaseURL(cfg.API.QnABaseURL),
		api.WithTimeout(cfg.API.Timeout),
		api.WithTransport(a.metrics.InstrumentTransport("backend", http.DefaultTransport)),
		api.WithRetry(service.RetryOptions{
			MaxAttempts:  cfg.API.MaxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		}),
		api.WithLogger(a.logger),
	)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr, a.logger); err != nil {
				a.logger.Error("Metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	a.logger.Debug("Configuration loaded",
		"base_url", cfg.API.BaseURL,
		"qna_base_url", cfg.API.QnABaseURL,
		"extractor", cfg.Extractor.Provider)
	return a, nil
}

// journal opens the local SQLite journal on first use.
func (a *app) journal(ctx context.Context) (*storage.SQLiteStorage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.store = store
	return store, nil
}

// optionalJournal returns the journal, or nil with a warning when it cannot
// be opened. Screens keep working without local history.
func (a *app) optionalJournal(ctx context.Context) service.Storage {
	store, err := a.journal(ctx)
	if err != nil {
		a.logger.Warn("Local journal unavailable", "path", a.cfg.DatabasePath, "error", err)
		return nil
	}
	return store
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// extractor builds the configured document reader. The vision model falls
// back to the simulation for formats it cannot read.
func (a *app) extractor() (extract.DocumentExtractor, func(), error) {
	simulated := extract.NewSimulated(nil, nil)
	if a.cfg.Extractor.Provider != config.ExtractorOpenAI {
		return simulated, func() {}, nil
	}

	vision, err := extract.NewOpenAI(extract.OpenAIConfig{
		HTTPClient:   &http.Client{Transport: a.metrics.InstrumentTransport("openai", http.DefaultTransport)},
		APIKey:       a.cfg.Extractor.OpenAIKey,
		Model:        a.cfg.Extractor.OpenAIModel,
		BaseURL:      a.cfg.Extractor.OpenAIURL,
		RateLimitRPM: a.cfg.Extractor.RateLimitRPM,
	}, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create document extractor: %w", err)
	}
	return extract.Fallback{Primary: vision, Secondary: simulated}, vision.Close, nil
}

// voucherOptions configures a form with the journal, extractor and id
// prefix. The returned function releases the extractor.
func (a *app) voucherOptions(ctx context.Context) ([]voucher.Option, func(), error) {
	ext, closeExt, err := a.extractor()
	if err != nil {
		return nil, nil, err
	}

	opts := []voucher.Option{
		voucher.WithExtractor(ext),
		voucher.WithIDGenerator(model.NewVoucherIDGenerator(a.cfg.Voucher.IDPrefix, nil)),
		voucher.WithValidation(
			validation.WithDelay(a.cfg.Voucher.DebounceDelay),
			validation.WithObserver(a.metrics.ObserveValidation),
		),
		voucher.WithLogger(a.logger),
	}
	if store := a.optionalJournal(ctx); store != nil {
		opts = append(opts, voucher.WithJournal(store))
	}
	return opts, closeExt, nil
}

func (a *app) dashboard(ctx context.Context) *dashboard.Dashboard {
	return dashboard.New(a.client, a.dashboardOptions(ctx)...)
}

func (a *app) dashboardOptions(ctx context.Context) []dashboard.Option {
	opts := []dashboard.Option{
		dashboard.WithLogger(a.logger),
		dashboard.WithBudgetsObserver(a.metrics.SetBudgets),
	}
	if store := a.optionalJournal(ctx); store != nil {
		opts = append(opts, dashboard.WithFeedbackLog(store))
	}
	return opts
}
