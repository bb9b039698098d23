package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/fetch"
	"pricewatch/internal/history"
	"pricewatch/internal/logger"
	"pricewatch/internal/render"
	"pricewatch/internal/thresholds"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds run configuration
type Config struct {
	// Recipient of the default thresholds when no user is configured
	LegacyChatID string

	// Tariff name shown in the daily digest
	Plan string

	// Weekly summaries go out on this local weekday
	WeeklyDay time.Weekday
	Location  *time.Location

	// Clock, replaceable in tests
	Now func() time.Time
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *Config {
	return &Config{
		Plan:      fetch.DefaultMarker,
		WeeklyDay: time.Monday,
		Location:  time.Local,
		Now:       time.Now,
	}
}

// Monitor runs one monitoring pass: fetch, record, notify
type Monitor struct {
	fetcher    PriceFetcher
	thresholds ThresholdLoader
	history    HistoryStore
	notifier   Notifier

	config *Config
}

// NewMonitor creates a monitor with all dependencies
func NewMonitor(fetcher PriceFetcher, thresholds ThresholdLoader, history HistoryStore, notifier Notifier, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Monitor{
		fetcher:    fetcher,
		thresholds: thresholds,
		history:    history,
		notifier:   notifier,
		config:     config,
	}
}

// Report summarises what a run did
type Report struct {
	RunID      string
	Prices     *core.Prices
	Delta      *history.Delta
	Recipients int
	Alerts     int
	Digests    int
	Sent       int
	Failed     int
	Weekly     bool

	FetchErr   error // prices could not be obtained; nothing was recorded
	HistoryErr error // prices obtained but a state file could not be written

	StartTime time.Time
	EndTime   time.Time
}

// Run executes a single pass. It never returns an error: every failure is
// logged, reported to recipients where useful and carried in the Report.
func (m *Monitor) Run(ctx context.Context) Report {
	now := m.config.Now().In(m.config.Location)
	report := Report{RunID: uuid.NewString(), StartTime: now}
	log := logger.With("run_id", report.RunID)

	// Step 1: thresholds
	snap := m.thresholds.Load()
	recipients := m.recipients(snap)
	report.Recipients = len(recipients)
	log.Info().Str("shape", string(snap.Shape)).Int("recipients", len(recipients)).Msg("Thresholds loaded")

	// Step 2: prices
	prices, err := m.fetcher.FetchCurrentPrices(ctx)
	if err != nil {
		report.FetchErr = err
		m.logFetchFailure(log, err)
		for _, chatID := range sortedIDs(recipients) {
			m.count(&report, m.notifier.Send(ctx, chatID, render.FetchFailure()))
		}
		return m.finish(log, report)
	}
	report.Prices = &prices
	log.Info().Float64("luce", prices.Luce).Float64("gas", prices.Gas).Msg("Prices fetched")

	// Step 3: daily history
	if err := m.history.RecordDaily(now, prices); err != nil {
		report.HistoryErr = err
		log.Error().Err(err).Msg("Failed to record daily prices")
	}

	// Step 4: delta against the previous run, then replace the snapshot
	last, err := m.history.ReadLast()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read last snapshot")
	}
	delta := history.CompareWithLast(prices, last)
	report.Delta = &delta
	if err := m.history.RecordLast(core.Observation{Luce: prices.Luce, Gas: prices.Gas, Timestamp: now}); err != nil {
		report.HistoryErr = errors.Join(report.HistoryErr, err)
		log.Error().Err(err).Msg("Failed to record last snapshot")
	}

	if len(recipients) == 0 {
		log.Warn().Msg("No users configured, no notifications sent")
		return m.finish(log, report)
	}

	// Step 5: one message per user
	for _, chatID := range sortedIDs(recipients) {
		msg := render.UserMessage(prices, recipients[chatID], delta, m.config.Plan, now)
		if msg.Kind == render.KindAlert {
			report.Alerts++
		} else {
			report.Digests++
		}
		ok := m.notifier.Send(ctx, chatID, msg.Text)
		m.count(&report, ok)
		log.Debug().Str("chat_id", chatID).Str("kind", string(msg.Kind)).Bool("delivered", ok).Msg("User message")
	}

	// Step 6: weekly summaries
	if now.Weekday() == m.config.WeeklyDay {
		report.Weekly = true
		daily := m.history.ReadDaily()
		summaries := make([]string, 0, len(core.Resources))
		for _, r := range core.Resources {
			summaries = append(summaries, render.WeeklySummary(history.Weekly(daily, r)))
		}
		for _, chatID := range sortedIDs(recipients) {
			for _, text := range summaries {
				m.count(&report, m.notifier.Send(ctx, chatID, text))
			}
		}
		log.Info().Str("weekday", now.Weekday().String()).Msg("Weekly summaries sent")
	}

	return m.finish(log, report)
}

// recipients returns the configured users, or the legacy chat with the
// default thresholds when there are none.
func (m *Monitor) recipients(snap thresholds.Snapshot) map[string]core.ThresholdConfig {
	if len(snap.Users) > 0 {
		return snap.Users
	}
	legacy := core.NormalizeChatID(m.config.LegacyChatID)
	if legacy == "" {
		return map[string]core.ThresholdConfig{}
	}
	return map[string]core.ThresholdConfig{legacy: snap.Default}
}

func (m *Monitor) logFetchFailure(log zerolog.Logger, err error) {
	var ee *fetch.ExtractionError
	if errors.As(err, &ee) && ee.Kind == fetch.KindParse {
		log.Error().Err(err).Str("scope", ee.Scope).Msg("Tariff page layout not recognised")
		return
	}
	log.Error().Err(err).Msg("Failed to fetch tariff page")
}

func (m *Monitor) count(report *Report, ok bool) {
	if ok {
		report.Sent++
	} else {
		report.Failed++
	}
}

func (m *Monitor) finish(log zerolog.Logger, report Report) Report {
	report.EndTime = m.config.Now()
	log.Info().
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("alerts", report.Alerts).
		Int("digests", report.Digests).
		Bool("weekly", report.Weekly).
		Dur("duration", report.EndTime.Sub(report.StartTime)).
		Msg("Run completed")
	return report
}

func sortedIDs(recipients map[string]core.ThresholdConfig) []string {
	ids := make([]string, 0, len(recipients))
	for id := range recipients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
