package core

import (
	"strconv"
	"strings"
	"time"
)

// Resource identifies one of the two monitored utilities.
type Resource string

const (
	Electricity Resource = "luce" // Electricity, priced per kWh
	Gas         Resource = "gas"  // Natural gas, priced per standard cubic meter
)

// Fixed unit strings stored next to every threshold.
const (
	UnitElectricity = "€/kWh"
	UnitGas         = "€/Smc"
)

// Resources lists the monitored resources in the order they are reported.
var Resources = []Resource{Electricity, Gas}

// Unit returns the currency unit the resource is priced in.
func (r Resource) Unit() string {
	if r == Gas {
		return UnitGas
	}
	return UnitElectricity
}

// Label returns the capitalised name used in user-facing text.
func (r Resource) Label() string {
	if r == Gas {
		return "Gas"
	}
	return "Luce"
}

// Emoji returns the icon that prefixes the resource in messages.
func (r Resource) Emoji() string {
	if r == Gas {
		return "🔥"
	}
	return "💡"
}

// Threshold is the price below which a user wants to be alerted.
type Threshold struct {
	Price float64 `json:"price" validate:"gte=0"` // Threshold price
	Unit  string  `json:"unit"`                   // Always the resource's fixed unit
}

// ThresholdConfig holds one user's thresholds for both resources.
type ThresholdConfig struct {
	Luce Threshold `json:"luce"` // Electricity threshold (€/kWh)
	Gas  Threshold `json:"gas"`  // Gas threshold (€/Smc)
}

// DefaultThresholdConfig returns the thresholds used when nothing is configured.
func DefaultThresholdConfig() ThresholdConfig {
	return NewThresholdConfig(0.25, 0.90)
}

// NewThresholdConfig builds a config with the fixed units filled in.
func NewThresholdConfig(luce, gas float64) ThresholdConfig {
	return ThresholdConfig{
		Luce: Threshold{Price: luce, Unit: UnitElectricity},
		Gas:  Threshold{Price: gas, Unit: UnitGas},
	}
}

// For returns the threshold configured for the given resource.
func (c ThresholdConfig) For(r Resource) Threshold {
	if r == Gas {
		return c.Gas
	}
	return c.Luce
}

// Prices is a pair of current unit prices.
type Prices struct {
	Luce float64 `json:"luce"` // Electricity price (€/kWh)
	Gas  float64 `json:"gas"`  // Gas price (€/Smc)
}

// Get returns the price of the given resource.
func (p Prices) Get(r Resource) float64 {
	if r == Gas {
		return p.Gas
	}
	return p.Luce
}

// Observation is a price pair together with the moment it was observed.
type Observation struct {
	Luce      float64   `json:"luce"` // Electricity price (€/kWh)
	Gas       float64   `json:"gas"`  // Gas price (€/Smc)
	Timestamp time.Time `json:"ts"`   // When the prices were scraped
}

// Prices returns the observed price pair.
func (o Observation) Prices() Prices {
	return Prices{Luce: o.Luce, Gas: o.Gas}
}

// NormalizeChatID canonicalises a chat identifier. Numeric ids lose
// surrounding whitespace and leading zeros; anything else is only trimmed.
func NormalizeChatID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}
