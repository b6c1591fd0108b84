package styles

import "github.com/charmbracelet/lipgloss"

// Theme colours post cells
type Theme struct {
	Name string

	Text      lipgloss.Color
	Dim       lipgloss.Color
	Subject   lipgloss.Color
	Poster    lipgloss.Color
	Quote     lipgloss.Color
	Link      lipgloss.Color
	Highlight lipgloss.Color
	Selected  lipgloss.Color
	Marked    lipgloss.Color
}

var (
	DarkTheme = &Theme{
		Name:      "dark",
		Text:      LightGray,
		Dim:       DimGray,
		Subject:   White,
		Poster:    CloverGreen,
		Quote:     QuoteGreen,
		Link:      LinkBlue,
		Highlight: SlateDark,
		Selected:  SlateLight,
		Marked:    Red,
	}

	LightTheme = &Theme{
		Name:      "light",
		Text:      Ink,
		Dim:       DimGray,
		Subject:   Maroon,
		Poster:    CloverGreen,
		Quote:     CloverGreen,
		Link:      LinkBlue,
		Highlight: Paper,
		Selected:  LightGray,
		Marked:    Red,
	}
)

// ThemeByName returns the named theme, falling back to the dark theme
func ThemeByName(name string) *Theme {
	if name == LightTheme.Name {
		return LightTheme
	}
	return DarkTheme
}
