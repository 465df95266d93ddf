package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the viewer's panel. The heatmap itself follows the colormap.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Value   lipgloss.Color
	Trace   lipgloss.Color
	Muted   lipgloss.Color
	Playing lipgloss.Color
	Paused  lipgloss.Color
	Error   lipgloss.Color
}

// Themes in the order the t key cycles them.
var Themes = []Theme{
	{
		// hot and cold spots of a temperature map
		Name:    "cmb",
		Title:   lipgloss.Color("#ff8c42"),
		Value:   lipgloss.Color("#7fb7ff"),
		Trace:   lipgloss.Color("#ffd166"),
		Muted:   lipgloss.Color("#5c6b80"),
		Playing: lipgloss.Color("#8bd17c"),
		Paused:  lipgloss.Color("#ffb347"),
		Error:   lipgloss.Color("#ef476f"),
	},
	{
		Name:    "ink",
		Title:   lipgloss.Color("#f2f2f2"),
		Value:   lipgloss.Color("#d0d0d0"),
		Trace:   lipgloss.Color("#a8a8a8"),
		Muted:   lipgloss.Color("#6e6e6e"),
		Playing: lipgloss.Color("#f2f2f2"),
		Paused:  lipgloss.Color("#a8a8a8"),
		Error:   lipgloss.Color("#ff5f5f"),
	},
	{
		// viridis end stops
		Name:    "viridis",
		Title:   lipgloss.Color("#fde725"),
		Value:   lipgloss.Color("#35b779"),
		Trace:   lipgloss.Color("#21918c"),
		Muted:   lipgloss.Color("#3b528b"),
		Playing: lipgloss.Color("#5ec962"),
		Paused:  lipgloss.Color("#fde725"),
		Error:   lipgloss.Color("#ff6b6b"),
	},
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

type styles struct {
	header lipgloss.Style
	stats  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	graph  lipgloss.Style
	help   lipgloss.Style
	status lipgloss.Style
	paused lipgloss.Style
	err    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Title).MarginBottom(1),
		stats: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1).
			MarginLeft(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(8),
		value:  lipgloss.NewStyle().Foreground(t.Value).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Trace),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		status: lipgloss.NewStyle().Bold(true).Foreground(t.Playing),
		paused: lipgloss.NewStyle().Bold(true).Foreground(t.Paused),
		err:    lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}
