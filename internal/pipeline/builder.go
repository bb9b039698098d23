package pipeline

import (
	"fmt"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/fetch"
	"pricewatch/internal/history"
	"pricewatch/internal/messaging"
	"pricewatch/internal/thresholds"
)

// Builder helps construct a fully configured Monitor
type Builder struct {
	cfg      *config.Config
	notifier Notifier
	fetcher  PriceFetcher
	now      func() time.Time
}

// NewBuilder creates a builder over the loaded application configuration
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithNotifier replaces the Telegram client
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithFetcher replaces the tariff page extractor
func (b *Builder) WithFetcher(f PriceFetcher) *Builder {
	b.fetcher = f
	return b
}

// WithClock replaces time.Now
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Extractor returns the price extractor described by the configuration
func Extractor(cfg *config.Config) *fetch.Extractor {
	return fetch.NewExtractor(fetch.Options{
		URL:       cfg.Tariff.URL,
		Marker:    cfg.Tariff.SectionMarker,
		Label:     cfg.Tariff.PriceLabel,
		UserAgent: cfg.Tariff.UserAgent,
		Timeout:   cfg.TariffTimeout(),
	})
}

// ThresholdStore returns the thresholds store described by the configuration
func ThresholdStore(cfg *config.Config) *thresholds.Store {
	return thresholds.NewStore(cfg.Storage.ThresholdsFile, cfg.Telegram.LegacyChatID)
}

// History returns the history store described by the configuration
func History(cfg *config.Config) *history.Store {
	return history.NewStore(cfg.Storage.HistoryFile, cfg.Storage.LastSnapshotFile)
}

// Telegram returns the Bot API client described by the configuration
func Telegram(cfg *config.Config) *messaging.TelegramClient {
	return messaging.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL, cfg.TelegramTimeout())
}

// Build constructs the Monitor
func (b *Builder) Build() (*Monitor, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	fetcher := b.fetcher
	if fetcher == nil {
		fetcher = Extractor(b.cfg)
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = Telegram(b.cfg)
	}

	runConfig := &Config{
		LegacyChatID: b.cfg.Telegram.LegacyChatID,
		Plan:         b.cfg.Tariff.SectionMarker,
		WeeklyDay:    b.cfg.WeeklyDay(),
		Location:     b.cfg.Location(),
		Now:          b.now,
	}

	return NewMonitor(fetcher, ThresholdStore(b.cfg), History(b.cfg), notifier, runConfig), nil
}
