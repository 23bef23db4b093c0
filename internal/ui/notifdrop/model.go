package notifdrop

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/keys"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/notify"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// Model is the notification dropdown panel. It renders the dispatcher's
// bounded list and applies the local read/clear transforms; nothing here
// talks to the network.
type Model struct {
	dispatcher *notify.Dispatcher
	keys       *keys.KeyMap
	cursor     int
	width      int
	height     int
}

// New creates the notification panel.
func New(d *notify.Dispatcher, k *keys.KeyMap, width, height int) Model {
	return Model{
		dispatcher: d,
		keys:       k,
		width:      width,
		height:     height,
	}
}

// Update handles key input for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	notifications := m.dispatcher.Notifications()

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(notifications)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.MarkRead):
		if m.cursor < len(notifications) {
			m.dispatcher.MarkAsRead(notifications[m.cursor].ID)
		}
	case key.Matches(keyMsg, m.keys.MarkAllRead):
		m.dispatcher.MarkAllAsRead()
	case key.Matches(keyMsg, m.keys.ClearAll):
		m.dispatcher.Clear()
		m.cursor = 0
	case key.Matches(keyMsg, m.keys.TestSound):
		m.dispatcher.TestSound()
	}

	return m, nil
}

// View renders the notification list, newest first.
func (m Model) View() string {
	notifications := m.dispatcher.Notifications()

	if len(notifications) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Sin notificaciones")
	}

	var b strings.Builder
	title := theme.HeaderStyle.Render(
		fmt.Sprintf("Notificaciones (%d sin leer)", m.dispatcher.UnreadCount()),
	)
	b.WriteString(title + "\n\n")

	for i, n := range notifications {
		b.WriteString(m.renderItem(n, i == m.cursor) + "\n")
	}

	b.WriteString("\n" + theme.HelpStyle.Render(
		"m marcar leída · M todas · x limpiar · s probar sonido",
	))

	return b.String()
}

// renderItem draws one notification line.
func (m Model) renderItem(n model.Notification, selected bool) string {
	marker := "●"
	style := theme.ListItemStyle
	if n.Read {
		marker = " "
		style = style.Foreground(theme.ColorGray)
	}
	if selected {
		style = theme.SelectedItemStyle
	}

	line := fmt.Sprintf("%s %s: %s (%s)",
		marker, n.Title, n.Message, relativeTime(n.CreatedAt))
	return style.Render(line)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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
