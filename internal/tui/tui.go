package tui

import (
	"fmt"
	"sort"
	"strings"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
	"pricewatch/internal/render"
	"pricewatch/internal/thresholds"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// defaultEntry labels the default thresholds in the user list
const defaultEntry = "default"

// Data is everything the dashboard shows, loaded once at startup.
type Data struct {
	Thresholds thresholds.Snapshot
	Daily      history.Daily
	Last       *core.Observation
}

// model represents the state of the TUI application.
type model struct {
	data        Data
	chats       []string // sorted chat ids, defaultEntry last
	weekly      []history.WeeklySummary
	selectedIdx int
	width       int
	height      int
	quitting    bool
}

// InitialModel returns the initial state of the TUI model.
func InitialModel(data Data) model {
	chats := make([]string, 0, len(data.Thresholds.Users)+1)
	for id := range data.Thresholds.Users {
		chats = append(chats, id)
	}
	sort.Strings(chats)
	chats = append(chats, defaultEntry)

	weekly := make([]history.WeeklySummary, 0, len(core.Resources))
	for _, r := range core.Resources {
		weekly = append(weekly, history.Weekly(data.Daily, r))
	}

	return model{
		data:   data,
		chats:  chats,
		weekly: weekly,
		width:  100,
	}
}

// Init is the first command that will be run. We don't need any for now.
func (m model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model accordingly.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.selectedIdx < len(m.chats)-1 {
				m.selectedIdx++
			}
		}
	}

	return m, nil
}

// selected returns the highlighted chat and its thresholds.
func (m model) selected() (string, core.ThresholdConfig) {
	chat := m.chats[m.selectedIdx]
	if chat == defaultEntry {
		return chat, m.data.Thresholds.Default
	}
	return chat, m.data.Thresholds.For(chat)
}

// View renders the TUI.
func (m model) View() string {
	if m.quitting {
		return "Ciao!\n"
	}

	docStyle := lipgloss.NewStyle().Margin(1, 2)
	paneWidth := max(m.width/2-5, 20)
	listStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	detailStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B35"))

	var list strings.Builder
	list.WriteString("Utenti\n\n")
	for i, chat := range m.chats {
		line := "  " + chat
		if i == m.selectedIdx {
			line = selectedStyle.Render("> " + chat)
		}
		list.WriteString(line + "\n")
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(list.String()),
		detailStyle.Render(m.detail()),
	)

	help := "\n\n[↑/k] Su | [↓/j] Giù | [q] Esci"

	return docStyle.Render(mainContent + help)
}

// detail describes the selected chat against the last observed prices.
func (m model) detail() string {
	chat, cfg := m.selected()

	var sb strings.Builder
	sb.WriteString("Soglie di " + chat + "\n")
	sb.WriteString(render.Thresholds(cfg) + "\n\n")

	if m.data.Last == nil {
		sb.WriteString("Nessun controllo registrato.\n")
	} else {
		prices := m.data.Last.Prices()
		sb.WriteString(fmt.Sprintf("Ultimo controllo: %s\n", m.data.Last.Timestamp.Format("02/01/2006 15:04")))
		for _, r := range core.Resources {
			status := "sopra soglia"
			if prices.Get(r) < cfg.For(r).Price {
				status = "🔔 sotto soglia"
			}
			sb.WriteString(fmt.Sprintf("%s %s: %.4f %s (%s)\n", r.Emoji(), r.Label(), prices.Get(r), r.Unit(), status))
		}
	}

	for _, w := range m.weekly {
		sb.WriteString("\n" + render.WeeklySummary(w) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Start runs the dashboard until the user quits.
func Start(data Data) error {
	p := tea.NewProgram(InitialModel(data), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
