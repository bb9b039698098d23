package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load looks at so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN", "CHAT_ID", "TELEGRAM_CHAT_ID",
		"DEBUG", "PRICEWATCH_DEBUG", "LOG_LEVEL",
		"PRICEWATCH_TARIFF_URL", "PRICEWATCH_SCHEDULE_WEEKLY_DAY", "PRICEWATCH_SCHEDULE_TIMEZONE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "app:\n  debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://octopusenergy.it/le-nostre-tariffe", cfg.Tariff.URL)
	assert.Equal(t, "Octopus Fissa 12M", cfg.Tariff.SectionMarker)
	assert.Equal(t, "Materia prima", cfg.Tariff.PriceLabel)
	assert.Equal(t, "soglie.json", cfg.Storage.ThresholdsFile)
	assert.Equal(t, "storico_prezzi.json", cfg.Storage.HistoryFile)
	assert.Equal(t, "ultimo_prezzo.json", cfg.Storage.LastSnapshotFile)
	assert.Equal(t, 25*time.Second, cfg.TariffTimeout())
	assert.Equal(t, 25*time.Second, cfg.TelegramTimeout())
	assert.Equal(t, time.Monday, cfg.WeeklyDay())
	assert.Equal(t, time.Local, cfg.Location())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Telegram.BotToken.Unmask())
}

func TestLoad_TokenFallbackOrder(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "old-token")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "old-token", cfg.Telegram.BotToken.Unmask())

	t.Setenv("TELEGRAM_BOT_TOKEN", "new-token")
	cfg, err = Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.Telegram.BotToken.Unmask())
}

func TestLoad_LegacyChatIDFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_ID", "123456")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "123456", cfg.Telegram.LegacyChatID)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
tariff:
  url: https://example.test/tariffe
  timeout: 10s
schedule:
  weekly_day: Friday
  timezone: Europe/Rome
storage:
  thresholds_file: /data/soglie.json
logging:
  level: DEBUG
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.App.ConfigFile)
	assert.Equal(t, "https://example.test/tariffe", cfg.Tariff.URL)
	assert.Equal(t, 10*time.Second, cfg.TariffTimeout())
	assert.Equal(t, time.Friday, cfg.WeeklyDay())
	assert.Equal(t, "Europe/Rome", cfg.Location().String())
	assert.Equal(t, "/data/soglie.json", cfg.Storage.ThresholdsFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad url", "tariff:\n  url: not a url\n"},
		{"bad weekday", "schedule:\n  weekly_day: someday\n"},
		{"bad duration", "tariff:\n  timeout: soon\n"},
		{"negative duration", "telegram:\n  timeout: -5s\n"},
		{"bad timezone", "schedule:\n  timezone: Mars/Olympus\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"poll timeout too long", "telegram:\n  poll_timeout: 120\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrTypeValidation, cfgErr.Type)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrTypeRead, cfgErr.Type)
}

func TestRequireBotToken(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireBotToken())

	cfg.Telegram.BotToken = "123:abc"
	assert.NoError(t, cfg.RequireBotToken())
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("123:abc")

	assert.Equal(t, redactedPlaceholder, s.String())
	assert.Equal(t, "123:abc", s.Unmask())

	out, err := json.Marshal(struct {
		Token Secret `json:"token"`
	}{Token: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"***REDACTED***"}`, string(out))
	assert.Empty(t, Secret("").String())
}
