// Package thresholds persists per-user alert thresholds in a single JSON file
package thresholds

import (
	"errors"
	"fmt"
	"strings"

	"pricewatch/internal/core"
	"pricewatch/internal/logger"
	"pricewatch/internal/persistence"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var (
	// ErrNegativePrice is returned by Save when a threshold below zero is requested
	ErrNegativePrice = errors.New("threshold price must not be negative")

	// ErrInvalidPrice is returned by Save when a threshold is not a finite number
	ErrInvalidPrice = errors.New("threshold price must be a finite number")

	// ErrEmptyChatID is returned by Save when no chat identifier is given
	ErrEmptyChatID = errors.New("chat id is required")
)

// Shape records which layout the thresholds file was decoded from.
type Shape string

const (
	ShapeMissing Shape = "missing" // no file on disk
	ShapeCorrupt Shape = "corrupt" // not valid JSON
	ShapeCurrent Shape = "current" // {"users": {...}, "default": {...}}
	ShapeLegacy  Shape = "legacy"  // {"luce": 0.12, "gas": 0.45}
	ShapeUnknown Shape = "unknown" // valid JSON of any other layout
)

// Snapshot is the decoded content of the thresholds file.
type Snapshot struct {
	Users   map[string]core.ThresholdConfig
	Default core.ThresholdConfig
	Shape   Shape
}

// For returns the thresholds of chatID, or the default when it has none.
func (s Snapshot) For(chatID string) core.ThresholdConfig {
	if cfg, ok := s.Users[core.NormalizeChatID(chatID)]; ok {
		return cfg
	}
	return s.Default
}

// Store reads and writes the thresholds file.
type Store struct {
	path         string
	legacyChatID string
	validate     *validator.Validate
}

// NewStore creates a store over path. legacyChatID, when set, owns the
// values of a legacy flat file.
func NewStore(path, legacyChatID string) *Store {
	return &Store{
		path:         path,
		legacyChatID: core.NormalizeChatID(legacyChatID),
		validate:     validator.New(),
	}
}

// Path returns the file the store operates on.
func (s *Store) Path() string {
	return s.path
}

// Load decodes the thresholds file. It never fails: a missing, corrupt or
// unrecognised file yields the default thresholds and no users.
func (s *Store) Load() Snapshot {
	data, err := persistence.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.Warn("Failed to read thresholds file, using defaults", "path", s.path, "error", err)
			return emptySnapshot(ShapeCorrupt)
		}
		return emptySnapshot(ShapeMissing)
	}

	snap := s.decode(data)
	if snap.Shape == ShapeCorrupt || snap.Shape == ShapeUnknown {
		logger.Warn("Unrecognised thresholds file, using defaults", "path", s.path, "shape", string(snap.Shape))
	}
	return snap
}

// Get returns the thresholds that apply to chatID.
func (s *Store) Get(chatID string) core.ThresholdConfig {
	return s.Load().For(chatID)
}

// Save updates the thresholds of chatID and rewrites the whole file in the
// current layout. A nil price keeps the user's existing value, or the
// default for a new user.
func (s *Store) Save(chatID string, luce, gas *float64) (core.ThresholdConfig, error) {
	id := core.NormalizeChatID(chatID)
	if id == "" {
		return core.ThresholdConfig{}, ErrEmptyChatID
	}
	for _, p := range []*float64{luce, gas} {
		if p == nil {
			continue
		}
		if !persistence.Finite(*p) {
			return core.ThresholdConfig{}, ErrInvalidPrice
		}
		if *p < 0 {
			return core.ThresholdConfig{}, ErrNegativePrice
		}
	}

	snap := s.Load()
	if snap.Shape == ShapeCorrupt || snap.Shape == ShapeUnknown {
		logger.Warn("Overwriting unrecognised thresholds file", "path", s.path, "shape", string(snap.Shape))
	}

	cfg, ok := snap.Users[id]
	if !ok {
		cfg = snap.Default
	}
	if luce != nil {
		cfg.Luce.Price = *luce
	}
	if gas != nil {
		cfg.Gas.Price = *gas
	}
	cfg = core.NewThresholdConfig(cfg.Luce.Price, cfg.Gas.Price)
	if err := s.validate.Struct(cfg); err != nil {
		return core.ThresholdConfig{}, fmt.Errorf("invalid thresholds for %s: %w", id, err)
	}
	snap.Users[id] = cfg

	doc := fileDocument{Users: snap.Users, Default: snap.Default}
	if err := persistence.WriteJSON(s.path, doc); err != nil {
		return core.ThresholdConfig{}, fmt.Errorf("failed to save thresholds for %s: %w", id, err)
	}

	logger.Info("Thresholds saved", "chat_id", id, "luce", cfg.Luce.Price, "gas", cfg.Gas.Price, "migrated_from", string(snap.Shape))
	return cfg, nil
}

// fileDocument is the current on-disk layout.
type fileDocument struct {
	Users   map[string]core.ThresholdConfig `json:"users"`
	Default core.ThresholdConfig            `json:"default"`
}

// userRecord is the lenient form of one stored ThresholdConfig.
type userRecord struct {
	Luce *priceRecord `json:"luce" validate:"required"`
	Gas  *priceRecord `json:"gas" validate:"required"`
}

type priceRecord struct {
	Price *persistence.Number `json:"price" validate:"required,gte=0"`
}

func (u userRecord) config() core.ThresholdConfig {
	return core.NewThresholdConfig(float64(*u.Luce.Price), float64(*u.Gas.Price))
}

// legacyRecord is the flat single-user layout.
type legacyRecord struct {
	Luce *persistence.Number `json:"luce" validate:"required,gte=0"`
	Gas  *persistence.Number `json:"gas" validate:"required,gte=0"`
}

func emptySnapshot(shape Shape) Snapshot {
	return Snapshot{
		Users:   make(map[string]core.ThresholdConfig),
		Default: core.DefaultThresholdConfig(),
		Shape:   shape,
	}
}

func (s *Store) decode(data []byte) Snapshot {
	if !json.Valid(data) {
		return emptySnapshot(ShapeCorrupt)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return emptySnapshot(ShapeUnknown)
	}

	// either key marks the current layout; a missing one decodes as null
	rawUsers, hasUsers := top["users"]
	rawDefault, hasDefault := top["default"]
	if hasUsers || hasDefault {
		return s.decodeCurrent(rawUsers, rawDefault)
	}

	if _, ok := top["luce"]; ok {
		if _, ok := top["gas"]; ok {
			return s.decodeLegacy(data)
		}
	}

	return emptySnapshot(ShapeUnknown)
}

func (s *Store) decodeCurrent(rawUsers, rawDefault json.RawMessage) Snapshot {
	snap := emptySnapshot(ShapeCurrent)

	if cfg, ok := s.decodeUser(rawDefault); ok {
		snap.Default = cfg
	} else if !isNull(rawDefault) {
		logger.Warn("Invalid default thresholds, using built-in defaults", "path", s.path)
	}

	if isNull(rawUsers) {
		return snap
	}

	var users map[string]json.RawMessage
	if err := json.Unmarshal(rawUsers, &users); err != nil {
		logger.Warn("Invalid users section in thresholds file", "path", s.path, "error", err)
		return snap
	}

	for chatID, raw := range users {
		cfg, ok := s.decodeUser(raw)
		if !ok {
			logger.Warn("Skipping invalid thresholds entry", "chat_id", chatID, "entry", string(raw))
			continue
		}
		snap.Users[core.NormalizeChatID(chatID)] = cfg
	}
	return snap
}

func (s *Store) decodeUser(raw json.RawMessage) (core.ThresholdConfig, bool) {
	if isNull(raw) {
		return core.ThresholdConfig{}, false
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.ThresholdConfig{}, false
	}
	if err := s.validate.Struct(rec); err != nil {
		return core.ThresholdConfig{}, false
	}
	return rec.config(), true
}

func (s *Store) decodeLegacy(data []byte) Snapshot {
	var rec legacyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return emptySnapshot(ShapeUnknown)
	}
	if err := s.validate.Struct(rec); err != nil {
		return emptySnapshot(ShapeUnknown)
	}

	snap := emptySnapshot(ShapeLegacy)
	if s.legacyChatID == "" {
		logger.Warn("Legacy thresholds file without CHAT_ID, values ignored", "path", s.path)
		return snap
	}
	snap.Users[s.legacyChatID] = core.NewThresholdConfig(float64(*rec.Luce), float64(*rec.Gas))
	return snap
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}
