package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionNotFound is returned when no heading carries the tariff marker
	ErrSectionNotFound = errors.New("tariff section not found")

	// ErrContainerNotFound is returned when the marker heading has no block after it
	ErrContainerNotFound = errors.New("tariff section container not found")

	// ErrPriceNotFound is returned when a price pattern matches nowhere on the page
	ErrPriceNotFound = errors.New("price not found (pattern changed?)")

	// ErrInvalidPrice is returned when a captured number cannot be parsed
	ErrInvalidPrice = errors.New("invalid price")
)

// Kind tells apart an unreachable page from a page whose layout changed.
type Kind string

const (
	KindFetch Kind = "fetch" // network failure or non-success HTTP status
	KindParse Kind = "parse" // page fetched but the prices could not be located
)

// ExtractionError is returned by FetchCurrentPrices and ExtractPrices.
type ExtractionError struct {
	Kind       Kind
	URL        string
	StatusCode int    // set for non-success HTTP responses
	Scope      string // flattened text that was searched, for diagnosing markup drift
	Err        error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error for %s: status %d: %v", e.Kind, e.URL, e.StatusCode, e.Err)
	}
	if e.URL != "" {
		return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsFetch reports whether err is an ExtractionError of kind KindFetch.
func IsFetch(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Kind == KindFetch
}

// IsParse reports whether err is an ExtractionError of kind KindParse.
func IsParse(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Kind == KindParse
}
