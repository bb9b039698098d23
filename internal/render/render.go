// Package render builds the text of every message sent to users
package render

import (
	"fmt"
	"strings"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
)

// Kind tells which template a user message was built from.
type Kind string

const (
	KindAlert  Kind = "alert"  // at least one price is below its threshold
	KindDigest Kind = "digest" // no threshold crossed, plain daily report
)

const (
	alertHeader = "📢 Prezzi sotto la tua soglia!"
	deltaHeader = "🔄 Rispetto all'ultimo controllo:"
	digestDate  = "02/01/2006"
)

// Message is the text composed for one recipient.
type Message struct {
	Kind Kind
	Text string
}

// AlertLines returns one line per resource whose price is strictly below
// the user's threshold, electricity first.
func AlertLines(prices core.Prices, cfg core.ThresholdConfig) []string {
	var lines []string
	for _, r := range core.Resources {
		price, limit := prices.Get(r), cfg.For(r).Price
		if price < limit {
			lines = append(lines, fmt.Sprintf("%s Prezzo %s sceso a %.4f %s (soglia: %.4f)", r.Emoji(), r, price, r.Unit(), limit))
		}
	}
	return lines
}

// UserMessage composes the per-run message for one user. An alert is built
// when any threshold is crossed, otherwise a digest; never nothing. plan
// names the tariff in the digest header and may be empty.
func UserMessage(prices core.Prices, cfg core.ThresholdConfig, delta history.Delta, plan string, date time.Time) Message {
	var sb strings.Builder
	kind := KindDigest

	if lines := AlertLines(prices, cfg); len(lines) > 0 {
		kind = KindAlert
		sb.WriteString(alertHeader + "\n")
		sb.WriteString(strings.Join(lines, "\n"))
	} else {
		sb.WriteString(digestHeader(plan, date) + "\n")
		for i, r := range core.Resources {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("%s %s: %.4f %s (soglia: %.4f)", r.Emoji(), r.Label(), prices.Get(r), r.Unit(), cfg.For(r).Price))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(DeltaSummary(delta))

	return Message{Kind: kind, Text: sb.String()}
}

func digestHeader(plan string, date time.Time) string {
	if plan = strings.TrimSpace(plan); plan == "" {
		return fmt.Sprintf("📅 Prezzi del %s", date.Format(digestDate))
	}
	return fmt.Sprintf("📅 Prezzi %s del %s", plan, date.Format(digestDate))
}

// DeltaSummary describes how both prices moved since the previous run.
func DeltaSummary(delta history.Delta) string {
	lines := []string{deltaHeader}
	for _, r := range core.Resources {
		lines = append(lines, deltaLine(delta.For(r)))
	}
	return strings.Join(lines, "\n")
}

func deltaLine(c history.Change) string {
	prefix := fmt.Sprintf("%s %s: ", c.Resource.Emoji(), c.Resource.Label())
	switch c.Kind {
	case history.ChangeUnchanged:
		return prefix + fmt.Sprintf("invariato (%.4f %s)", c.Current, c.Resource.Unit())
	case history.ChangeNoBaseline:
		return prefix + fmt.Sprintf("%s ora %.4f %s", arrow(c), c.Current, c.Resource.Unit())
	case history.ChangeChanged:
		return prefix + fmt.Sprintf("%s %+.2f%% (%.4f → %.4f %s)", arrow(c), c.Percent, c.Previous, c.Current, c.Resource.Unit())
	default:
		return prefix + "nessun dato precedente"
	}
}

func arrow(c history.Change) string {
	if c.Up() {
		return "⬆️"
	}
	return "⬇️"
}

// WeeklySummary renders the trend of one resource over the last week.
func WeeklySummary(summary history.WeeklySummary) string {
	if len(summary.Points) == 0 {
		return fmt.Sprintf("📊 Riepilogo settimanale %s: nessun dato.", summary.Resource)
	}

	lines := []string{fmt.Sprintf("📊 Riepilogo settimanale %s", summary.Resource)}
	for _, p := range summary.Points {
		lines = append(lines, fmt.Sprintf("%s: %.4f %s", p.Date, p.Price, summary.Resource.Unit()))
	}
	if summary.Variation != nil {
		lines = append(lines, fmt.Sprintf("📈 Variazione: %+.2f%%", *summary.Variation))
	}
	return strings.Join(lines, "\n")
}

// FetchFailure is sent to every recipient when the prices could not be read.
func FetchFailure() string {
	return "⚠️ Non sono riuscito a leggere i prezzi Octopus in questo controllo. Riproverò al prossimo giro."
}

// Thresholds lists a user's configured thresholds.
func Thresholds(cfg core.ThresholdConfig) string {
	lines := make([]string, 0, len(core.Resources))
	for _, r := range core.Resources {
		lines = append(lines, fmt.Sprintf("%s %s: %.4f %s", r.Emoji(), r.Label(), cfg.For(r).Price, r.Unit()))
	}
	return strings.Join(lines, "\n")
}
