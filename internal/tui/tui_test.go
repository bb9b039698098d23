package tui

import (
	"testing"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
	"pricewatch/internal/thresholds"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() Data {
	daily := history.NewDaily()
	daily.Luce["2024-05-01"] = 0.20
	daily.Luce["2024-05-02"] = 0.18
	daily.Gas["2024-05-02"] = 0.95

	return Data{
		Thresholds: thresholds.Snapshot{
			Users: map[string]core.ThresholdConfig{
				"200": core.NewThresholdConfig(0.10, 0.80),
				"100": core.NewThresholdConfig(0.19, 1.00),
			},
			Default: core.DefaultThresholdConfig(),
		},
		Daily: daily,
		Last:  &core.Observation{Luce: 0.18, Gas: 0.95, Timestamp: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)},
	}
}

func press(t *testing.T, m model, key string) model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func TestInitialModel_SortsChatsDefaultLast(t *testing.T) {
	m := InitialModel(testData())
	assert.Equal(t, []string{"100", "200", defaultEntry}, m.chats)
	require.Len(t, m.weekly, 2)
	assert.Equal(t, core.Electricity, m.weekly[0].Resource)
}

func TestUpdate_Navigation(t *testing.T) {
	m := InitialModel(testData())

	m = press(t, m, "up")
	assert.Equal(t, 0, m.selectedIdx)

	m = press(t, m, "down")
	m = press(t, m, "j")
	m = press(t, m, "down")
	assert.Equal(t, 2, m.selectedIdx)

	chat, cfg := m.selected()
	assert.Equal(t, defaultEntry, chat)
	assert.Equal(t, core.DefaultThresholdConfig(), cfg)

	m = press(t, m, "k")
	chat, cfg = m.selected()
	assert.Equal(t, "200", chat)
	assert.Equal(t, core.NewThresholdConfig(0.10, 0.80), cfg)
}

func TestUpdate_Quit(t *testing.T) {
	m := InitialModel(testData())
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, "Ciao!\n", next.View())
}

func TestDetail_ComparesLastPrices(t *testing.T) {
	m := InitialModel(testData())

	detail := m.detail()
	assert.Contains(t, detail, "Soglie di 100")
	assert.Contains(t, detail, "💡 Luce: 0.1800 €/kWh (🔔 sotto soglia)")
	assert.Contains(t, detail, "🔥 Gas: 0.9500 €/Smc (🔔 sotto soglia)")
	assert.Contains(t, detail, "📈 Variazione: -10.00%")

	m = press(t, m, "down")
	detail = m.detail()
	assert.Contains(t, detail, "💡 Luce: 0.1800 €/kWh (sopra soglia)")
}

func TestDetail_NoSnapshot(t *testing.T) {
	data := testData()
	data.Last = nil
	m := InitialModel(data)
	assert.Contains(t, m.detail(), "Nessun controllo registrato.")
	assert.Contains(t, m.View(), "Utenti")
}
