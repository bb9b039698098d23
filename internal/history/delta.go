package history

import (
	"math"

	"pricewatch/internal/core"
)

// Tolerance absorbs floating point noise when comparing two prices.
const Tolerance = 1e-6

// ChangeKind classifies how a price moved since the last snapshot.
type ChangeKind int

const (
	ChangeNoPrior    ChangeKind = iota // no snapshot to compare with
	ChangeUnchanged                    // equal within Tolerance
	ChangeNoBaseline                   // previous price was exactly zero
	ChangeChanged                      // moved by Percent
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNoPrior:
		return "no_prior"
	case ChangeUnchanged:
		return "unchanged"
	case ChangeNoBaseline:
		return "no_baseline"
	case ChangeChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Change is the movement of a single resource.
type Change struct {
	Resource core.Resource
	Kind     ChangeKind
	Previous float64
	Current  float64
	Percent  float64 // signed, only meaningful for ChangeChanged
}

// Up reports whether the price rose.
func (c Change) Up() bool {
	return c.Current > c.Previous
}

// Delta holds the movement of both resources.
type Delta struct {
	Luce Change
	Gas  Change
}

// For returns the change of the given resource.
func (d Delta) For(r core.Resource) Change {
	if r == core.Gas {
		return d.Gas
	}
	return d.Luce
}

// CompareWithLast classifies current against the last snapshot. It has to
// be called before the snapshot is replaced by RecordLast.
func CompareWithLast(current core.Prices, last *core.Observation) Delta {
	var previous *core.Prices
	if last != nil {
		p := last.Prices()
		previous = &p
	}
	return Delta{
		Luce: compare(core.Electricity, current, previous),
		Gas:  compare(core.Gas, current, previous),
	}
}

func compare(r core.Resource, current core.Prices, previous *core.Prices) Change {
	c := Change{Resource: r, Current: current.Get(r)}
	if previous == nil {
		c.Kind = ChangeNoPrior
		return c
	}

	c.Previous = previous.Get(r)
	switch {
	case math.Abs(c.Current-c.Previous) <= Tolerance:
		c.Kind = ChangeUnchanged
	case c.Previous == 0:
		c.Kind = ChangeNoBaseline
	default:
		c.Kind = ChangeChanged
		c.Percent = (c.Current - c.Previous) / c.Previous * 100
	}
	return c
}
