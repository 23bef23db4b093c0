package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/theme"
)

// Layout manages the terminal layout dimensions shared by all surfaces.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		BannerHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, banner, and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar: title on the left, unread
// badges on the right.
func (l Layout) RenderHeader(title string, notifUnread, chatUnread int) string {
	titleRendered := theme.HeaderStyle.Render(title)

	badges := ""
	if notifUnread > 0 {
		badges += theme.BadgeStyle.Render(fmt.Sprintf("🔔 %d", notifUnread))
	}
	if chatUnread > 0 {
		badges += theme.BadgeStyle.Render(fmt.Sprintf("💬 %d", chatUnread))
	}

	gap := l.Width - lipgloss.Width(titleRendered) - lipgloss.Width(badges)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, titleRendered, filler, badges)
}

// RenderBanner renders the always-visible alert banner line. An empty
// string collapses to a blank line so the layout height stays stable.
func (l Layout) RenderBanner(alertUnread int) string {
	if alertUnread == 0 {
		return lipgloss.NewStyle().Width(l.Width).Render("")
	}

	text := fmt.Sprintf("⚠ %d alerta(s) sin leer", alertUnread)
	rendered := theme.BannerStyle.Render(text)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().Width(gap).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, banner, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	banner string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		banner,
		content,
		statusBar,
	)
}

// Overlay centers a modal box over a dimmed background placeholder. Bubble
// Tea renders a single string, so the modal simply replaces the content
// area while present.
func (l Layout) Overlay(modal string) string {
	return lipgloss.Place(
		l.ContentWidth(),
		l.ContentHeight(),
		lipgloss.Center,
		lipgloss.Center,
		modal,
	)
}
