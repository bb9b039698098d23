package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Tariff   Tariff   `mapstructure:"tariff"`
	Storage  Storage  `mapstructure:"storage"`
	Telegram Telegram `mapstructure:"telegram"`
	Schedule Schedule `mapstructure:"schedule"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Tariff describes the page the prices are scraped from
type Tariff struct {
	URL           string `mapstructure:"url" validate:"required,url"`
	SectionMarker string `mapstructure:"section_marker" validate:"required"`
	PriceLabel    string `mapstructure:"price_label" validate:"required"`
	UserAgent     string `mapstructure:"user_agent" validate:"required"`
	Timeout       string `mapstructure:"timeout" validate:"required"`
}

// Storage holds the paths of the JSON state files
type Storage struct {
	ThresholdsFile   string `mapstructure:"thresholds_file" validate:"required"`
	HistoryFile      string `mapstructure:"history_file" validate:"required"`
	LastSnapshotFile string `mapstructure:"last_snapshot_file" validate:"required"`
}

// Telegram holds Bot API configuration
type Telegram struct {
	BotToken     Secret `mapstructure:"bot_token"`
	LegacyChatID string `mapstructure:"legacy_chat_id"`
	APIBaseURL   string `mapstructure:"api_base_url" validate:"required,url"`
	Timeout      string `mapstructure:"timeout" validate:"required"`
	PollTimeout  int    `mapstructure:"poll_timeout" validate:"gte=0,lte=50"`
}

// Schedule controls calendar-dependent behaviour of a run
type Schedule struct {
	WeeklyDay string `mapstructure:"weekly_day" validate:"required,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	Timezone  string `mapstructure:"timezone"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Load loads the configuration from the .env file, the config file and the
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".pricewatch")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	v.SetEnvPrefix("PRICEWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{Type: ErrTypeRead, Message: "error reading config file", Err: err}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, &ConfigError{Type: ErrTypeDecode, Message: "error unmarshaling config", Err: err}
	}
	config.App.ConfigFile = v.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)

	v.SetDefault("tariff.url", "https://octopusenergy.it/le-nostre-tariffe")
	v.SetDefault("tariff.section_marker", "Octopus Fissa 12M")
	v.SetDefault("tariff.price_label", "Materia prima")
	v.SetDefault("tariff.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("tariff.timeout", "25s")

	v.SetDefault("storage.thresholds_file", "soglie.json")
	v.SetDefault("storage.history_file", "storico_prezzi.json")
	v.SetDefault("storage.last_snapshot_file", "ultimo_prezzo.json")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.legacy_chat_id", "")
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "25s")
	v.SetDefault("telegram.poll_timeout", 30)

	v.SetDefault("schedule.weekly_day", "monday")
	v.SetDefault("schedule.timezone", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables(v *viper.Viper) {
	// The workflow secret is TELEGRAM_BOT_TOKEN; TELEGRAM_TOKEN is the older name.
	bindEnvKeys(v, "telegram.bot_token", []string{
		"TELEGRAM_BOT_TOKEN",
		"TELEGRAM_TOKEN",
	})

	bindEnvKeys(v, "telegram.legacy_chat_id", []string{
		"CHAT_ID",
		"TELEGRAM_CHAT_ID",
	})

	bindEnvKeys(v, "app.debug", []string{
		"DEBUG",
		"PRICEWATCH_DEBUG",
	})

	bindEnvKeys(v, "logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(v *viper.Viper, viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			v.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	config.Storage.ThresholdsFile = expandPath(config.Storage.ThresholdsFile)
	config.Storage.HistoryFile = expandPath(config.Storage.HistoryFile)
	config.Storage.LastSnapshotFile = expandPath(config.Storage.LastSnapshotFile)

	config.Schedule.WeeklyDay = strings.ToLower(strings.TrimSpace(config.Schedule.WeeklyDay))
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"tariff.timeout":   config.Tariff.Timeout,
		"telegram.timeout": config.Telegram.Timeout,
	}
	for key, duration := range durations {
		if duration == "" {
			continue
		}
		d, err := time.ParseDuration(duration)
		if err != nil || d <= 0 {
			return &ConfigError{Type: ErrTypeValidation, Message: fmt.Sprintf("invalid duration for %s: %s", key, duration), Err: err}
		}
	}

	if config.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(config.Schedule.Timezone); err != nil {
			return &ConfigError{Type: ErrTypeValidation, Message: fmt.Sprintf("invalid timezone %q", config.Schedule.Timezone), Err: err}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig checks struct tags and reports every failing field at once
func validateConfig(config *Config) error {
	validate := validator.New()
	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigError{Type: ErrTypeValidation, Message: "configuration validation failed", Err: err}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return &ConfigError{
		Type:    ErrTypeValidation,
		Message: fmt.Sprintf("configuration errors:\n- %s", strings.Join(msgs, "\n- ")),
	}
}

// RequireBotToken reports an error when no Telegram token is configured.
// Only the interactive bot needs it up front; a monitoring run degrades
// to logging instead.
func (c *Config) RequireBotToken() error {
	if c.Telegram.BotToken.Unmask() == "" {
		return &ConfigError{
			Type:    ErrTypeValidation,
			Message: "Telegram bot token is required. Set TELEGRAM_BOT_TOKEN (or TELEGRAM_TOKEN) or telegram.bot_token in the config file",
		}
	}
	return nil
}

// TariffTimeout returns the bound for the tariff page request.
func (c *Config) TariffTimeout() time.Duration { return mustDuration(c.Tariff.Timeout, 25*time.Second) }

// TelegramTimeout returns the bound for a single Bot API call.
func (c *Config) TelegramTimeout() time.Duration {
	return mustDuration(c.Telegram.Timeout, 25*time.Second)
}

// WeeklyDay returns the weekday on which weekly summaries are sent.
func (c *Config) WeeklyDay() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.Schedule.WeeklyDay) {
			return d
		}
	}
	return time.Monday
}

// Location returns the configured timezone, or the process local zone.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
