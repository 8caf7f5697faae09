package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/model"
)

// Extractor providers.
const (
	ExtractorSimulated = "simulated"
	ExtractorOpenAI    = "openai"
)

// API holds the backend endpoints.
type API struct {
	BaseURL     string
	QnABaseURL  string
	Timeout     time.Duration
	MaxAttempts int
}

// Voucher holds voucher form settings.
type Voucher struct {
	IDPrefix      string
	DebounceDelay time.Duration
}

// Extractor selects and configures the document extractor.
type Extractor struct {
	Provider     string
	OpenAIKey    string
	OpenAIModel  string
	OpenAIURL    string
	RateLimitRPM int
}

// App is the resolved configuration handed to every component.
type App struct {
	API          API
	Voucher      Voucher
	Extractor    Extractor
	ReportDir    string
	DatabasePath string
	MetricsAddr  string
	LogFile      string
	Plain        bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5005")
	v.SetDefault("api.qna_base_url", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.max_attempts", 1)
	v.SetDefault("voucher.id_prefix", model.DefaultVoucherIDPrefix)
	v.SetDefault("voucher.debounce", 100*time.Millisecond)
	v.SetDefault("extractor.provider", ExtractorSimulated)
	v.SetDefault("extractor.openai.model", "gpt-4o-mini")
	v.SetDefault("extractor.openai.rate_limit", 20)
	v.SetDefault("report.dir", ".")
	v.SetDefault("database.path", filepath.Join(DefaultDir(), "yesan.db"))
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.file", filepath.Join(DefaultDir(), "yesan.log"))
	v.SetDefault("output.plain", false)
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (App, error) {
	app := App{
		API: API{
			BaseURL:     strings.TrimRight(v.GetString("api.base_url"), "/"),
			QnABaseURL:  strings.TrimRight(v.GetString("api.qna_base_url"), "/"),
			Timeout:     v.GetDuration("api.timeout"),
			MaxAttempts: v.GetInt("api.max_attempts"),
		},
		Voucher: Voucher{
			IDPrefix:      v.GetString("voucher.id_prefix"),
			DebounceDelay: v.GetDuration("voucher.debounce"),
		},
		Extractor: Extractor{
			Provider:     strings.ToLower(v.GetString("extractor.provider")),
			OpenAIKey:    v.GetString("extractor.openai.api_key"),
			OpenAIModel:  v.GetString("extractor.openai.model"),
			OpenAIURL:    v.GetString("extractor.openai.base_url"),
			RateLimitRPM: v.GetInt("extractor.openai.rate_limit"),
		},
		ReportDir:    ExpandPath(v.GetString("report.dir")),
		DatabasePath: ExpandPath(v.GetString("database.path")),
		MetricsAddr:  v.GetString("metrics.addr"),
		LogFile:      ExpandPath(v.GetString("logging.file")),
		Plain:        v.GetBool("output.plain"),
	}

	if app.API.QnABaseURL == "" {
		app.API.QnABaseURL = app.API.BaseURL
	}
	if app.Extractor.OpenAIKey == "" {
		app.Extractor.OpenAIKey = v.GetString("openai_api_key")
	}

	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Validate checks the configuration for values no component can work with.
func (a App) Validate() error {
	for name, raw := range map[string]string{"api.base_url": a.API.BaseURL, "api.qna_base_url": a.API.QnABaseURL} {
		if raw == "" {
			return fmt.Errorf("%w: %s", common.ErrMissingConfig, name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q is not an absolute URL", common.ErrInvalidConfig, name, raw)
		}
	}
	if a.API.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", common.ErrInvalidConfig)
	}
	if a.API.MaxAttempts < 1 {
		return fmt.Errorf("%w: api.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if a.Voucher.DebounceDelay < 0 {
		return fmt.Errorf("%w: voucher.debounce cannot be negative", common.ErrInvalidConfig)
	}
	switch a.Extractor.Provider {
	case ExtractorSimulated:
	case ExtractorOpenAI:
		if a.Extractor.OpenAIKey == "" {
			return fmt.Errorf("%w: extractor.openai.api_key (or OPENAI_API_KEY)", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown extractor provider %q", common.ErrInvalidConfig, a.Extractor.Provider)
	}
	return nil
}
