package handlers

import (
	"errors"
	"testing"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
	"pricewatch/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"run", "bot", "thresholds", "history", "prices", "dashboard"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	show, _, err := root.Find([]string{"soglie", "show"})
	require.NoError(t, err)
	assert.Equal(t, "show", show.Name())

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
}

func TestRenderReport(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	report := pipeline.Report{
		RunID:      "run-1",
		Prices:     &core.Prices{Luce: 0.1234, Gas: 0.9},
		Recipients: 2,
		Alerts:     1,
		Digests:    1,
		Sent:       1,
		Failed:     1,
		StartTime:  start,
		EndTime:    start.Add(1500 * time.Millisecond),
	}

	out := renderReport(report)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "0.1234 €/kWh")
	assert.Contains(t, out, "0.9000 €/Smc")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "1.5s")
}

func TestRenderReport_FetchFailure(t *testing.T) {
	out := renderReport(pipeline.Report{RunID: "run-2", FetchErr: errors.New("status 403")})
	assert.Contains(t, out, "status 403")
	assert.NotContains(t, out, "€/kWh")
	assert.NotContains(t, out, "Failed")
}

func TestWeeklyTable(t *testing.T) {
	daily := history.NewDaily()
	daily.Luce["2024-05-01"] = 0.20
	daily.Luce["2024-05-02"] = 0.22

	out := weeklyTable(history.Weekly(daily, core.Electricity))
	assert.Contains(t, out, "2024-05-01")
	assert.Contains(t, out, "0.2200")
	assert.Contains(t, out, "+10.00%")

	empty := weeklyTable(history.Weekly(daily, core.Gas))
	assert.Contains(t, empty, "nessun dato")
}
