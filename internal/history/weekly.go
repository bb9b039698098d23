package history

import (
	"sort"

	"pricewatch/internal/core"
)

// WeeklyWindow is the number of most recent dates a weekly summary covers.
const WeeklyWindow = 7

// Point is the price of one resource on one date.
type Point struct {
	Date  string
	Price float64
}

// WeeklySummary is the recent trend of one resource.
type WeeklySummary struct {
	Resource  core.Resource
	Points    []Point  // ascending by date
	Variation *float64 // percent change first to last, nil when not computable
}

// Weekly selects the last WeeklyWindow dates of r in ascending order and
// computes the variation across them.
func Weekly(daily Daily, r core.Resource) WeeklySummary {
	series := daily.Series(r)

	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > WeeklyWindow {
		dates = dates[len(dates)-WeeklyWindow:]
	}

	summary := WeeklySummary{Resource: r, Points: make([]Point, 0, len(dates))}
	for _, date := range dates {
		summary.Points = append(summary.Points, Point{Date: date, Price: series[date]})
	}

	if n := len(summary.Points); n >= 2 {
		first, last := summary.Points[0].Price, summary.Points[n-1].Price
		if first != 0 {
			v := (last - first) / first * 100
			summary.Variation = &v
		}
	}
	return summary
}
