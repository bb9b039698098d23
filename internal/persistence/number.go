package persistence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that decodes from a JSON number or from a numeric
// string written by hand, with either decimal separator ("0,13"). Infinite
// and NaN values are rejected.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(unq), ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !Finite(f) {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = Number(f)
	return nil
}

// Finite reports whether f is neither infinite nor NaN.
func Finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
