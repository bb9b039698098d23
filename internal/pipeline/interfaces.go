package pipeline

import (
	"context"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
	"pricewatch/internal/thresholds"
)

// PriceFetcher obtains the current tariff prices
type PriceFetcher interface {
	// FetchCurrentPrices scrapes both prices; failures are *fetch.ExtractionError
	FetchCurrentPrices(ctx context.Context) (core.Prices, error)
}

// ThresholdLoader provides the per-user thresholds
type ThresholdLoader interface {
	// Load never fails; degraded files yield defaults
	Load() thresholds.Snapshot
}

// HistoryStore persists daily prices and the last snapshot
type HistoryStore interface {
	RecordDaily(day time.Time, prices core.Prices) error
	RecordLast(obs core.Observation) error
	ReadDaily() history.Daily
	ReadLast() (*core.Observation, error)
}

// Notifier delivers a message to one chat and reports success
type Notifier interface {
	Send(ctx context.Context, chatID, text string) bool
}
