package alertview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/escalate"
	"github.com/hannysoft/mesa-client/internal/keys"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// ackTimeout bounds the acknowledgment round trip.
const ackTimeout = 10 * time.Second

// AckResultMsg reports the outcome of an acknowledgment attempt.
type AckResultMsg struct {
	Err error
}

// Model is the intrusive escalation modal. It cannot be dismissed except
// through acknowledgment: esc and every other key besides enter is
// ignored. A failed acknowledgment keeps the modal up with the error shown
// so the action stays retryable.
type Model struct {
	engine  *escalate.Engine
	keys    *keys.KeyMap
	alert   *model.Alert
	ackErr  error
	pending bool
	width   int
	height  int
}

// New creates the alert modal bound to the escalation engine.
func New(e *escalate.Engine, k *keys.KeyMap, width, height int) Model {
	return Model{
		engine: e,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Present arms the modal with the alert of the live episode.
func (m *Model) Present(alert *model.Alert) {
	m.alert = alert
	m.ackErr = nil
	m.pending = false
}

// Active reports whether the modal is currently presenting an alert.
func (m Model) Active() bool {
	return m.alert != nil
}

// Update handles key input. Only the acknowledge binding does anything.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AckResultMsg:
		m.pending = false
		if msg.Err != nil {
			m.ackErr = msg.Err
			return m, nil
		}
		m.alert = nil
		m.ackErr = nil
		return m, nil

	case tea.KeyMsg:
		if !m.Active() || m.pending {
			return m, nil
		}
		if key.Matches(msg, m.keys.Acknowledge) {
			m.pending = true
			engine := m.engine
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
				defer cancel()
				return AckResultMsg{Err: engine.Acknowledge(ctx)}
			}
		}
	}

	return m, nil
}

// View renders the modal box.
func (m Model) View() string {
	if !m.Active() {
		return ""
	}

	sender := theme.RoleStyle(m.alert.SentByRole).Render(strings.ToUpper(m.alert.SentByRole))
	body := fmt.Sprintf(
		"ALERTA DE %s\n\n%s\n\n- %s, %s",
		sender, m.alert.Message,
		m.alert.SentByName, m.alert.CreatedAt.Format("15:04"),
	)

	footer := theme.HelpStyle.Render("enter para confirmar lectura")
	if m.pending {
		footer = theme.HelpStyle.Render("confirmando...")
	}
	if m.ackErr != nil {
		footer = lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf("No se pudo confirmar: %v (reintente con enter)", m.ackErr))
	}

	return theme.ModalStyle.Render(body + "\n\n" + footer)
}

// SetSize updates the modal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
