package tui

import (
	"log/slog"

	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/service"
	"github.com/Veraticus/yesan/internal/tui/themes"
	"github.com/Veraticus/yesan/internal/voucher"
)

// Config holds TUI configuration.
type Config struct {
	Theme            themes.Theme
	Backend          service.Backend
	Logger           *slog.Logger
	InitialPath      string
	ReportDir        string
	VoucherOptions   []voucher.Option
	DashboardOptions []dashboard.Option
	Width            int
	Height           int
	AltScreen        bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:       themes.Default,
		Logger:      slog.Default(),
		InitialPath: "/",
		ReportDir:   ".",
		Width:       120,
		Height:      36,
		AltScreen:   true,
	}
}

// WithBackend sets the REST backend every screen talks to.
func WithBackend(backend service.Backend) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithLogger sets the logger handed to every screen.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithInitialPath selects the first screen by its path.
func WithInitialPath(path string) Option {
	return func(c *Config) {
		c.InitialPath = path
	}
}

// WithReportDir sets where budget reports are saved.
func WithReportDir(dir string) Option {
	return func(c *Config) {
		c.ReportDir = dir
	}
}

// WithVoucherOptions configures the voucher form.
func WithVoucherOptions(opts ...voucher.Option) Option {
	return func(c *Config) {
		c.VoucherOptions = append(c.VoucherOptions, opts...)
	}
}

// WithDashboardOptions configures the budget dashboard.
func WithDashboardOptions(opts ...dashboard.Option) Option {
	return func(c *Config) {
		c.DashboardOptions = append(c.DashboardOptions, opts...)
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
