package incidentlist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/keys"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// loadTimeout bounds a manual list reload.
const loadTimeout = 15 * time.Second

// Feed is the slice of the backend API the list consumes.
type Feed interface {
	MyIncidents(ctx context.Context) ([]model.Incident, error)
	ReturnedIncidents(ctx context.Context) ([]model.Incident, error)
}

// Mode selects which feed the list renders.
type Mode int

const (
	// ModeMine lists the incidents assigned to the signed-in agent.
	ModeMine Mode = iota
	// ModeReturned lists the incidents returned for rework.
	ModeReturned
)

// IncidentsLoadedMsg is sent when incidents have been loaded.
type IncidentsLoadedMsg struct {
	Mode      Mode
	Incidents []model.Incident
	Err       error
}

// Model renders one of the incident feeds as a navigable list.
type Model struct {
	list   list.Model
	feed   Feed
	keys   *keys.KeyMap
	mode   Mode
	width  int
	height int
}

// New creates an incident list for the given mode.
func New(feed Feed, k *keys.KeyMap, mode Mode, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	if mode == ModeReturned {
		l.Title = "Incidentes devueltos"
	} else {
		l.Title = "Mis incidentes"
	}
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		feed:   feed,
		keys:   k,
		mode:   mode,
		width:  width,
		height: height,
	}
}

// Init loads the initial set of incidents.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that fetches the list's feed.
func (m Model) Load() tea.Cmd {
	feed := m.feed
	mode := m.mode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		var incidents []model.Incident
		var err error
		if mode == ModeReturned {
			incidents, err = feed.ReturnedIncidents(ctx)
		} else {
			incidents, err = feed.MyIncidents(ctx)
		}
		return IncidentsLoadedMsg{Mode: mode, Incidents: incidents, Err: err}
	}
}

// SetIncidents replaces the list contents with a loaded feed result.
func (m *Model) SetIncidents(incidents []model.Incident) tea.Cmd {
	items := make([]list.Item, len(incidents))
	for i, inc := range incidents {
		items[i] = IncidentItem{Incident: inc}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the incident list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case IncidentsLoadedMsg:
		if msg.Mode != m.mode || msg.Err != nil {
			return m, nil
		}
		return m, m.SetIncidents(msg.Incidents)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Refresh) {
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the incident list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Sin incidentes")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
