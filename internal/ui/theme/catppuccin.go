package theme

import (
	"github.com/charmbracelet/lipgloss"

	"engagectl/internal/platform/logsink"
)

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Yellow   = lipgloss.Color("#f9e2af")
	Red      = lipgloss.Color("#f38ba8")

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Good  = lipgloss.NewStyle().Foreground(Green)
	Bad   = lipgloss.NewStyle().Foreground(Red)
)

// Severity colours one event by its level, matching the run command's output.
func Severity(sev logsink.Severity) lipgloss.Style {
	switch sev {
	case logsink.Success:
		return lipgloss.NewStyle().Foreground(Green)
	case logsink.Warning:
		return lipgloss.NewStyle().Foreground(Yellow)
	case logsink.Error:
		return lipgloss.NewStyle().Foreground(Red).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Text)
	}
}

// State colours a session state label.
func State(state string) lipgloss.Style {
	switch state {
	case "running":
		return Hot
	case "completed":
		return Good
	case "failed":
		return Bad
	case "stopped":
		return lipgloss.NewStyle().Foreground(Yellow)
	default:
		return Muted
	}
}
