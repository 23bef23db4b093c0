package chatmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/chat"
	"github.com/hannysoft/mesa-client/internal/keys"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
	"github.com/hannysoft/mesa-client/internal/ui/chatbox"
)

// opTimeout bounds the directory round trip.
const opTimeout = 15 * time.Second

// DirectoryMsg carries the refreshed conversation directory.
type DirectoryMsg struct {
	Conversations []model.Conversation
	Err           error
}

// focusedPane identifies which pane receives key input.
type focusedPane int

const (
	focusDirectory focusedPane = iota
	focusThread
)

// Model is the multi-conversation manager widget: a conversation directory
// on the left, the selected thread on the right. Selecting a conversation
// loads its history and implicitly zeroes its unread count.
type Model struct {
	svc    *chat.Service
	keys   *keys.KeyMap
	thread chatbox.Model

	conversations []model.Conversation
	cursor        int
	focus         focusedPane
	width         int
	height        int
}

// New creates the manager widget.
func New(svc *chat.Service, actor model.Actor, k *keys.KeyMap, width, height int) Model {
	thread := chatbox.New(svc, actor, nil, width*2/3, height)
	return Model{
		svc:    svc,
		keys:   k,
		thread: thread,
		width:  width,
		height: height,
	}
}

// Init loads the conversation directory.
func (m Model) Init() tea.Cmd {
	return m.RefreshDirectory()
}

// RefreshDirectory returns a command that reloads the directory. The app
// also invokes this when a push message arrives for a conversation that is
// not open, so unread counts and ordering stay current.
func (m Model) RefreshDirectory() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		conversations, err := svc.Directory(ctx)
		return DirectoryMsg{Conversations: conversations, Err: err}
	}
}

// OpenCounterpartID returns the counterpart of the open thread, zero when
// none is open.
func (m Model) OpenCounterpartID() int {
	return m.thread.CounterpartID()
}

// ReloadThreadFromLocal re-reads the open thread from the merge store.
func (m Model) ReloadThreadFromLocal() tea.Cmd {
	return m.thread.ReloadFromLocal()
}

// Update handles messages for the manager widget.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DirectoryMsg:
		if msg.Err == nil {
			m.conversations = msg.Conversations
			if m.cursor >= len(m.conversations) {
				m.cursor = 0
			}
		}
		return m, nil

	case chatbox.ThreadMsg, chatbox.SendResultMsg, chatbox.ResolvedMsg:
		var cmd tea.Cmd
		m.thread, cmd = m.thread.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.focus == focusThread {
			if key.Matches(msg, m.keys.Back) {
				m.focus = focusDirectory
				return m, nil
			}
			var cmd tea.Cmd
			m.thread, cmd = m.thread.Update(msg)
			return m, cmd
		}
		return m.handleDirectoryKeys(msg)
	}

	var cmd tea.Cmd
	m.thread, cmd = m.thread.Update(msg)
	return m, cmd
}

// handleDirectoryKeys processes key input while the directory is focused.
func (m Model) handleDirectoryKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.conversations)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.RefreshDirectory()
	case key.Matches(msg, m.keys.Select):
		if m.cursor >= len(m.conversations) {
			return m, nil
		}
		selected := m.conversations[m.cursor]

		// Optimistically zero the unread badge; the next directory
		// refresh reconciles against the server.
		m.conversations[m.cursor].UnreadCount = 0
		m.focus = focusThread

		openCmd := m.thread.SetCounterpart(chatbox.Counterpart{
			ID:   selected.CounterpartID,
			Name: selected.CounterpartName,
		})
		return m, tea.Batch(openCmd, m.thread.Focus())
	}

	return m, nil
}

// View renders the directory and the open thread side by side.
func (m Model) View() string {
	directoryWidth := m.width / 3

	directory := m.renderDirectory(directoryWidth)
	thread := m.thread.View()

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(directoryWidth).Render(directory),
		theme.BorderStyle.Width(m.width-directoryWidth-2).Render(thread),
	)
}

// renderDirectory draws the conversation list with unread badges.
func (m Model) renderDirectory(width int) string {
	if len(m.conversations) == 0 {
		return lipgloss.NewStyle().
			Width(width).
			Foreground(theme.ColorGray).
			Render("Sin conversaciones")
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render("Conversaciones") + "\n\n")

	for i, conv := range m.conversations {
		line := conv.CounterpartName
		if conv.UnreadCount > 0 {
			line += " " + theme.BadgeStyle.Render(fmt.Sprintf("%d", conv.UnreadCount))
		}
		// Truncate by runes so accented Spanish text is never split
		// mid-character.
		preview := conv.LastMessage
		if runes := []rune(preview); width > 6 && len(runes) > width-6 {
			preview = string(runes[:width-6]) + "…"
		}

		style := theme.ListItemStyle
		if i == m.cursor && m.focus == focusDirectory {
			style = theme.SelectedItemStyle
		}
		b.WriteString(style.Render(line) + "\n")
		b.WriteString(theme.HelpStyle.Render("  "+preview) + "\n")
	}

	return b.String()
}

// SetSize updates the widget dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.thread.SetSize(width*2/3, height)
}
