// Package history keeps the per-day price history and the last observed snapshot
package history

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/logger"
	"pricewatch/internal/persistence"

	json "github.com/goccy/go-json"
)

// DateLayout is the key format of the daily history.
const DateLayout = "2006-01-02"

// Daily maps each resource to its price by calendar date.
type Daily struct {
	Luce map[string]float64 `json:"luce"`
	Gas  map[string]float64 `json:"gas"`
}

// NewDaily returns an empty history.
func NewDaily() Daily {
	return Daily{Luce: map[string]float64{}, Gas: map[string]float64{}}
}

// Series returns the dated prices of one resource.
func (d Daily) Series(r core.Resource) map[string]float64 {
	if r == core.Gas {
		return d.Gas
	}
	return d.Luce
}

// Store owns the history file and the last snapshot file.
type Store struct {
	dailyPath string
	lastPath  string
}

// NewStore creates a store over the two state files.
func NewStore(dailyPath, lastPath string) *Store {
	return &Store{dailyPath: dailyPath, lastPath: lastPath}
}

// ErrUnreadableHistory is returned by RecordDaily when the history file
// exists but could not be decoded in full. The file is left untouched.
var ErrUnreadableHistory = errors.New("price history is unreadable")

// RecordDaily sets the entry for the calendar date of day, replacing any
// value recorded earlier the same day. Other dates are never dropped: a
// history that cannot be read completely is not rewritten.
func (s *Store) RecordDaily(day time.Time, prices core.Prices) error {
	date := day.Format(DateLayout)
	daily, skipped, err := s.loadDaily()
	if err != nil {
		return fmt.Errorf("failed to record daily prices for %s: %w", date, err)
	}
	if len(skipped) > 0 {
		return fmt.Errorf("failed to record daily prices for %s: %w: invalid entries %v", date, ErrUnreadableHistory, skipped)
	}
	daily.Luce[date] = prices.Luce
	daily.Gas[date] = prices.Gas

	if err := persistence.WriteJSON(s.dailyPath, daily); err != nil {
		return fmt.Errorf("failed to record daily prices for %s: %w", date, err)
	}
	return nil
}

// RecordLast replaces the last snapshot with obs.
func (s *Store) RecordLast(obs core.Observation) error {
	if err := persistence.WriteJSON(s.lastPath, obs); err != nil {
		return fmt.Errorf("failed to record last snapshot: %w", err)
	}
	return nil
}

// ReadDaily returns the daily history. A missing or unreadable file yields
// an empty history; entries that are not numbers are left out.
func (s *Store) ReadDaily() Daily {
	daily, skipped, err := s.loadDaily()
	if err != nil {
		logger.Warn("Failed to read price history", "path", s.dailyPath, "error", err)
		return NewDaily()
	}
	if len(skipped) > 0 {
		logger.Warn("Ignoring invalid price history entries", "path", s.dailyPath, "entries", skipped)
	}
	return daily
}

// rawDaily keeps each value undecoded so one bad entry does not hide the rest.
type rawDaily struct {
	Luce map[string]json.RawMessage `json:"luce"`
	Gas  map[string]json.RawMessage `json:"gas"`
}

// loadDaily decodes the history file. Values may be numbers or numeric
// strings; the "resource/date" keys of any other value are returned in
// skipped. A missing file is an empty history.
func (s *Store) loadDaily() (Daily, []string, error) {
	daily := NewDaily()

	data, err := persistence.ReadFile(s.dailyPath)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return daily, nil, nil
		}
		return daily, nil, err
	}

	var raw rawDaily
	if err := json.Unmarshal(data, &raw); err != nil {
		return daily, nil, fmt.Errorf("%w: %v", ErrUnreadableHistory, err)
	}

	var skipped []string
	for _, r := range core.Resources {
		src := raw.Luce
		if r == core.Gas {
			src = raw.Gas
		}
		dst := daily.Series(r)
		for date, value := range src {
			var n persistence.Number
			if err := json.Unmarshal(value, &n); err != nil {
				skipped = append(skipped, string(r)+"/"+date)
				continue
			}
			dst[date] = float64(n)
		}
	}
	sort.Strings(skipped)
	return daily, skipped, nil
}

// lastRecord tolerates timestamps written without a zone offset.
type lastRecord struct {
	Luce *persistence.Number `json:"luce"`
	Gas  *persistence.Number `json:"gas"`
	TS   string   `json:"ts"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ReadLast returns the last snapshot, or nil when none was recorded. A
// corrupt snapshot is logged and treated as absent.
func (s *Store) ReadLast() (*core.Observation, error) {
	data, err := persistence.ReadFile(s.lastPath)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rec lastRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Luce == nil || rec.Gas == nil {
		logger.Warn("Corrupt last snapshot, ignoring it", "path", s.lastPath)
		return nil, nil
	}

	obs := &core.Observation{Luce: float64(*rec.Luce), Gas: float64(*rec.Gas)}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, rec.TS); err == nil {
			obs.Timestamp = ts
			break
		}
	}
	return obs, nil
}
