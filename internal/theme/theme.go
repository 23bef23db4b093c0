package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// BadgeStyle renders unread counters in the header.
var BadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorRed).
	Padding(0, 1)

// BannerStyle renders the always-visible alert banner.
var BannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorOrange).
	Padding(0, 1)

// ModalStyle frames the escalation alert modal.
var ModalStyle = lipgloss.NewStyle().
	Padding(1, 3).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(ColorRed)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ChatBubbleOwn styles messages sent by the signed-in actor.
var ChatBubbleOwn = lipgloss.NewStyle().
	Foreground(ColorGreen).
	PaddingLeft(4)

// ChatBubbleOther styles messages from the counterpart.
var ChatBubbleOther = lipgloss.NewStyle().
	Foreground(ColorWhite)

// StatusStyle returns a color-coded style for the given incident status.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "pendiente":
		return base.Foreground(ColorYellow)
	case "en_proceso":
		return base.Foreground(ColorBlue)
	case "resuelto":
		return base.Foreground(ColorGreen)
	case "devuelto":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// RoleStyle returns a color-coded style for the given account role.
func RoleStyle(role string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch role {
	case "admin":
		return base.Foreground(ColorMagenta)
	case "coordinador":
		return base.Foreground(ColorOrange)
	case "tecnico":
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}
