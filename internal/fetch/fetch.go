package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"pricewatch/internal/core"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	DefaultURL       = "https://octopusenergy.it/le-nostre-tariffe"
	DefaultMarker    = "Octopus Fissa 12M"
	DefaultLabel     = "Materia prima"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 25 * time.Second
)

// numberRun matches a price written with either decimal separator.
var numberRun = regexp.MustCompile(`[0-9.,]+`)

// priceToken matches one price inside a list, so a comma may also separate values.
var priceToken = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Options configures an Extractor. Zero values fall back to the defaults above.
type Options struct {
	URL       string
	Marker    string // heading text identifying the tariff plan
	Label     string // text preceding each price, e.g. "Materia prima"
	UserAgent string
	Timeout   time.Duration
}

// Extractor scrapes the current electricity and gas prices from the tariff page.
type Extractor struct {
	URL        string
	Marker     string
	Label      string
	UserAgent  string
	HTTPClient *http.Client
}

// NewExtractor creates an Extractor with a bounded HTTP client.
func NewExtractor(opts Options) *Extractor {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Extractor{
		URL:       opts.URL,
		Marker:    opts.Marker,
		Label:     opts.Label,
		UserAgent: opts.UserAgent,
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// FetchCurrentPrices downloads the tariff page and extracts both prices.
// Every failure is an *ExtractionError of kind KindFetch or KindParse.
func (e *Extractor) FetchCurrentPrices(ctx context.Context) (core.Prices, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return core.Prices{}, &ExtractionError{Kind: KindFetch, URL: e.URL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.6")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return core.Prices{}, &ExtractionError{Kind: KindFetch, URL: e.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.Prices{}, &ExtractionError{
			Kind:       KindFetch,
			URL:        e.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response %s", resp.Status),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return core.Prices{}, &ExtractionError{Kind: KindFetch, URL: e.URL, Err: fmt.Errorf("reading page: %w", err)}
	}

	prices, err := ExtractPrices(doc, e.Marker, e.Label)
	if err != nil {
		if ee, ok := err.(*ExtractionError); ok {
			ee.URL = e.URL
		}
		return core.Prices{}, err
	}
	return prices, nil
}

// ExtractPrices locates the section introduced by the marker heading and reads
// "<label>: <number> <unit>" for each resource. A resource missing from the
// section is looked up in the whole page instead.
func ExtractPrices(doc *goquery.Document, marker, label string) (core.Prices, error) {
	container, err := findSection(doc, marker)
	if err != nil {
		return core.Prices{}, &ExtractionError{Kind: KindParse, Err: err}
	}

	scope := flattenText(container)
	var page string
	found := make(map[core.Resource]float64, len(core.Resources))

	for _, r := range core.Resources {
		re := pricePattern(label, r.Unit())

		raw := firstGroup(re, scope)
		if raw == "" {
			if page == "" {
				page = pageText(doc)
			}
			raw = firstGroup(re, page)
		}
		if raw == "" {
			return core.Prices{}, &ExtractionError{Kind: KindParse, Scope: scope, Err: fmt.Errorf("%w: %s", ErrPriceNotFound, r)}
		}

		v, err := ParsePrice(raw)
		if err != nil {
			return core.Prices{}, &ExtractionError{Kind: KindParse, Scope: scope, Err: err}
		}
		found[r] = v
	}

	return core.Prices{Luce: found[core.Electricity], Gas: found[core.Gas]}, nil
}

// ParsePrice reads the first number in s, accepting "0,1232" and "0.1232"
// alike. Surrounding text such as a unit is ignored.
func ParsePrice(s string) (float64, error) {
	raw := strings.TrimRight(numberRun.FindString(s), ".,")
	if raw == "" {
		return 0, fmt.Errorf("%w: no number in %q", ErrInvalidPrice, s)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidPrice, raw, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// PriceTokens returns every price in s, in order. Values may be separated by
// spaces or commas: "0,25 0,90", "0.25,0.90" and "0,25,0,90" all give two.
func PriceTokens(s string) []string {
	return priceToken.FindAllString(s, -1)
}

// findSection returns the first div that follows, in document order, the
// first h1-h4 whose text contains marker.
func findSection(doc *goquery.Document, marker string) (*goquery.Selection, error) {
	var heading, container *goquery.Selection

	doc.Find("h1, h2, h3, h4, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if heading == nil {
			if goquery.NodeName(s) != "div" && strings.Contains(s.Text(), marker) {
				heading = s
			}
			return true
		}
		if goquery.NodeName(s) == "div" {
			container = s
			return false
		}
		return true
	})

	if heading == nil {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, marker)
	}
	if container == nil {
		return nil, fmt.Errorf("%w: %q", ErrContainerNotFound, marker)
	}
	return container, nil
}

// pricePattern builds a case-insensitive "<label>: <number> <unit>" matcher.
// Any run of whitespace inside the label is accepted.
func pricePattern(label, unit string) *regexp.Regexp {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`) + `\s*:\s*([0-9.,]+)\s*` + regexp.QuoteMeta(unit))
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func pageText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return flattenText(doc.Selection)
	}
	return flattenText(body)
}

// flattenText joins the trimmed text nodes under s with single spaces.
// Unicode spaces such as &nbsp; become plain spaces so the patterns match.
func flattenText(s *goquery.Selection) string {
	var parts []string

	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(s)

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, strings.Join(parts, " "))
}
