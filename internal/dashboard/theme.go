package dashboard

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeDeepSpace = Theme{
		Name:    "deep-space",
		Primary: lipgloss.Color("#00d4ff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#666688"),
		Border:  lipgloss.Color("#444466"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Border:  lipgloss.Color("#00cc00"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Border:  lipgloss.Color("#cccccc"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#feca57"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Border:  lipgloss.Color("#ff9ff3"),
		Success: lipgloss.Color("#5fd068"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
	}

	Themes = []Theme{
		ThemeDeepSpace,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDeepSpace
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func themeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

type styles struct {
	title      lipgloss.Style
	subheader  lipgloss.Style
	section    lipgloss.Style
	label      lipgloss.Style
	active     lipgloss.Style
	value      lipgloss.Style
	caption    lipgloss.Style
	card       lipgloss.Style
	cardLabel  lipgloss.Style
	cardValue  lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	graph      lipgloss.Style
	sidebar    lipgloss.Style
	safe       lipgloss.Style
	unsafe     lipgloss.Style
	reason     lipgloss.Style
	divergence lipgloss.Style
	status     lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		subheader:  lipgloss.NewStyle().Bold(true).Foreground(t.Text).MarginTop(1),
		section:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent).MarginTop(1),
		label:      lipgloss.NewStyle().Foreground(t.Muted),
		active:     lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		value:      lipgloss.NewStyle().Foreground(t.Text),
		caption:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		card:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		cardLabel:  lipgloss.NewStyle().Foreground(t.Muted),
		cardValue:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		panel:      lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		graph:      lipgloss.NewStyle().Foreground(t.Primary),
		sidebar:    lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(t.Border).Padding(0, 2, 0, 1),
		safe:       lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		unsafe:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		reason:     lipgloss.NewStyle().Foreground(t.Warning),
		divergence: lipgloss.NewStyle().Bold(true).Foreground(t.Error).Border(lipgloss.RoundedBorder()).BorderForeground(t.Error).Padding(0, 1),
		status:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
	}
}
