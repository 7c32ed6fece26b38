package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used by a Renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Number  lipgloss.Style
	Code    lipgloss.Style
}

func newStyles(lr *lipgloss.Renderer) Styles {
	return Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("242")),
		Number:  lr.NewStyle().Foreground(lipgloss.Color("214")),
		Code: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
	}
}
