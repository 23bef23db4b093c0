package chatbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/chat"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// opTimeout bounds each chat round trip.
const opTimeout = 15 * time.Second

// Counterpart identifies the other side of the 1:1 thread.
type Counterpart struct {
	ID   int
	Name string
}

// Resolver determines the counterpart for the widget. The end-user widget
// resolves the administrator once; the single-admin widget auto-selects
// the most recent conversation; the manager picks explicitly and needs no
// resolver.
type Resolver func(ctx context.Context) (Counterpart, error)

// AdminResolver resolves the administrator counterpart for end users.
func AdminResolver(svc *chat.Service) Resolver {
	return func(ctx context.Context) (Counterpart, error) {
		info, err := svc.ResolveAdmin(ctx)
		if err != nil {
			return Counterpart{}, err
		}
		return Counterpart{ID: info.ID, Name: info.Name}, nil
	}
}

// FirstConversationResolver auto-selects the most recently active
// conversation for the single-admin widget.
func FirstConversationResolver(svc *chat.Service) Resolver {
	return func(ctx context.Context) (Counterpart, error) {
		conversations, err := svc.Directory(ctx)
		if err != nil {
			return Counterpart{}, err
		}
		if len(conversations) == 0 {
			return Counterpart{}, nil
		}
		first := conversations[0]
		return Counterpart{ID: first.CounterpartID, Name: first.CounterpartName}, nil
	}
}

// ResolvedMsg carries the resolved counterpart.
type ResolvedMsg struct {
	Counterpart Counterpart
	Err         error
}

// ThreadMsg carries a (re)loaded message thread.
type ThreadMsg struct {
	Messages []model.Message
	Err      error
}

// SendResultMsg carries the thread after a send, or the failed body so the
// input can be restored and retried.
type SendResultMsg struct {
	Messages []model.Message
	Body     string
	Err      error
}

// Model is the 1:1 chat thread widget shared by the end-user and
// single-admin surfaces, and embedded as the manager's detail pane.
type Model struct {
	svc      *chat.Service
	actor    model.Actor
	resolver Resolver

	counterpart Counterpart
	resolved    bool
	messages    []model.Message
	input       textinput.Model
	sendErr     error
	width       int
	height      int
}

// New creates a chat thread widget. resolver may be nil when the
// counterpart is set explicitly via SetCounterpart.
func New(svc *chat.Service, actor model.Actor, resolver Resolver, width, height int) Model {
	input := textinput.New()
	input.Placeholder = "Escribe un mensaje..."
	input.Prompt = "> "
	input.Width = width - 4

	return Model{
		svc:      svc,
		actor:    actor,
		resolver: resolver,
		input:    input,
		width:    width,
		height:   height,
	}
}

// Init resolves the counterpart when a resolver is configured.
func (m Model) Init() tea.Cmd {
	if m.resolver == nil {
		return textinput.Blink
	}
	resolver := m.resolver
	return tea.Batch(textinput.Blink, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		counterpart, err := resolver(ctx)
		return ResolvedMsg{Counterpart: counterpart, Err: err}
	})
}

// SetCounterpart selects the thread explicitly and loads its history.
func (m *Model) SetCounterpart(c Counterpart) tea.Cmd {
	m.counterpart = c
	m.resolved = true
	m.messages = nil
	return m.open()
}

// CounterpartID returns the open thread's counterpart, zero when none.
func (m Model) CounterpartID() int {
	return m.counterpart.ID
}

// Update handles messages for the thread widget.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResolvedMsg:
		if msg.Err != nil {
			// Missing counterpart renders the neutral empty state.
			m.resolved = true
			return m, nil
		}
		m.counterpart = msg.Counterpart
		m.resolved = true
		if m.counterpart.ID == 0 {
			return m, nil
		}
		return m, m.open()

	case ThreadMsg:
		if msg.Err == nil {
			m.messages = msg.Messages
		}
		return m, nil

	case SendResultMsg:
		if msg.Err != nil {
			// Restore the typed body so the send stays retryable.
			m.sendErr = msg.Err
			m.input.SetValue(msg.Body)
			return m, nil
		}
		m.sendErr = nil
		m.messages = msg.Messages
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			return m.send()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send clears the input immediately and posts the message. The thread is
// reloaded from the server afterwards; there is no optimistic insertion.
func (m Model) send() (Model, tea.Cmd) {
	body := strings.TrimSpace(m.input.Value())
	if body == "" || m.counterpart.ID == 0 {
		return m, nil
	}

	m.input.Reset()
	svc := m.svc
	counterpartID := m.counterpart.ID

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		messages, err := svc.Send(ctx, counterpartID, body)
		if err != nil {
			return SendResultMsg{Body: body, Err: err}
		}
		return SendResultMsg{Messages: messages}
	}
}

// open loads the thread history and marks the conversation read.
func (m Model) open() tea.Cmd {
	svc := m.svc
	counterpartID := m.counterpart.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		messages, err := svc.Open(ctx, counterpartID)
		return ThreadMsg{Messages: messages, Err: err}
	}
}

// ReloadFromLocal re-reads the merged thread from the local store. Used
// after a push arrival for the open conversation.
func (m Model) ReloadFromLocal() tea.Cmd {
	svc := m.svc
	counterpartID := m.counterpart.ID
	if counterpartID == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		messages, err := svc.Thread(ctx, counterpartID)
		return ThreadMsg{Messages: messages, Err: err}
	}
}

// Focus focuses the input field.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// View renders the thread and the input line.
func (m Model) View() string {
	if !m.resolved {
		return theme.HelpStyle.Render("Conectando...")
	}
	if m.counterpart.ID == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Sin conversaciones")
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render(m.counterpart.Name) + "\n\n")

	visible := m.messages
	maxLines := m.height - 6
	if maxLines > 0 && len(visible) > maxLines {
		visible = visible[len(visible)-maxLines:]
	}

	for _, msg := range visible {
		b.WriteString(m.renderMessage(msg) + "\n")
	}

	if m.sendErr != nil {
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf("No se pudo enviar: %v", m.sendErr)) + "\n")
	}

	b.WriteString("\n" + m.input.View())
	return b.String()
}

// renderMessage draws one message line.
func (m Model) renderMessage(msg model.Message) string {
	timestamp := msg.CreatedAt.Format("15:04")
	if msg.FromUserID == m.actor.ID {
		return theme.ChatBubbleOwn.Render(
			fmt.Sprintf("%s  tú: %s", timestamp, msg.Body))
	}
	return theme.ChatBubbleOther.Render(
		fmt.Sprintf("%s  %s: %s", timestamp, m.counterpart.Name, msg.Body))
}

// SetSize updates the widget dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 4
}
