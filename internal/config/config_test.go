package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/common"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	app, err := Load(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5005", app.API.BaseURL)
	assert.Equal(t, app.API.BaseURL, app.API.QnABaseURL, "qna url falls back to the base url")
	assert.Equal(t, 1, app.API.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, app.Voucher.DebounceDelay)
	assert.Equal(t, "V2025-", app.Voucher.IDPrefix)
	assert.Equal(t, ExtractorSimulated, app.Extractor.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	app, err := Load(newViper(map[string]any{
		"api.base_url":     "http://budget.internal:8000/",
		"api.qna_base_url": "http://qna.internal:8001",
		"voucher.debounce": "250ms",
		"output.plain":     true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://budget.internal:8000", app.API.BaseURL)
	assert.Equal(t, "http://qna.internal:8001", app.API.QnABaseURL)
	assert.Equal(t, 250*time.Millisecond, app.Voucher.DebounceDelay)
	assert.True(t, app.Plain)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		values  map[string]any
		wantErr error
		name    string
	}{
		{
			name:    "relative base url",
			values:  map[string]any{"api.base_url": "localhost"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero attempts",
			values:  map[string]any{"api.max_attempts": 0},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "negative debounce",
			values:  map[string]any{"voucher.debounce": "-1s"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown extractor",
			values:  map[string]any{"extractor.provider": "tesseract"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "openai without key",
			values:  map[string]any{"extractor.provider": "openai"},
			wantErr: common.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(tt.values))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	app, err := Load(newViper(map[string]any{
		"extractor.provider": "OpenAI",
		"openai_api_key":     "sk-test",
	}))
	require.NoError(t, err)
	assert.Equal(t, ExtractorOpenAI, app.Extractor.Provider)
	assert.Equal(t, "sk-test", app.Extractor.OpenAIKey)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("YESAN_TEST_DIR", "/tmp/yesan")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "reports"), ExpandPath("~/reports"))
	assert.Equal(t, "/tmp/yesan/db", ExpandPath("$YESAN_TEST_DIR/db"))
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")

	v := newViper(map[string]any{"sheets.client_id": "viper-client"})
	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "viper-client", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "env-token", cfg.RefreshToken)
}

func TestLoadSheetsConfig_NoAuth(t *testing.T) {
	for _, k := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
	} {
		t.Setenv(k, "")
	}

	_, err := LoadSheetsConfig(newViper(nil))
	assert.Error(t, err)
}
