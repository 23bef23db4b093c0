package incidentlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// IncidentItem wraps a model.Incident so it can be used in a bubbles/list.
type IncidentItem struct {
	Incident model.Incident
}

// FilterValue returns the string used for fuzzy filtering.
func (i IncidentItem) FilterValue() string { return i.Incident.Title }

// Title returns the incident title for the list.
func (i IncidentItem) Title() string {
	return fmt.Sprintf("%s %s", i.Incident.Folio, i.Incident.Title)
}

// Description returns a short summary line for the list.
func (i IncidentItem) Description() string {
	parts := []string{
		i.Incident.Status,
		i.Incident.ReportedByName,
		relativeTime(i.Incident.UpdatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering incident rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single incident line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(IncidentItem)
	if !ok {
		return
	}

	status := theme.StatusStyle(it.Incident.Status).Render(it.Incident.Status)
	line := fmt.Sprintf("%s %s %s", it.Incident.Folio, status, it.Incident.Title)

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// relativeTime formats a timestamp as a short "ago" string.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "ahora"
	case d < time.Hour:
		return fmt.Sprintf("hace %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("hace %dh", int(d.Hours()))
	default:
		return fmt.Sprintf("hace %dd", int(d.Hours()/24))
	}
}
