package render

// Glamour standard styles
const (
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleDracula    = "dracula"
	StyleTokyoNight = "tokyo-night"
	StylePink       = "pink"
	StyleNoTTY      = "notty"
	StyleASCII      = "ascii"
)

// ThemeInfo describes a markdown style for display.
type ThemeInfo struct {
	Name        string
	Description string
}

var markdownThemes = []ThemeInfo{
	{Name: StyleDark, Description: "Dark theme (default)"},
	{Name: StyleLight, Description: "Light theme for bright terminals"},
	{Name: StyleDracula, Description: "Dracula color scheme"},
	{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
	{Name: StylePink, Description: "Pink accents"},
	{Name: StyleNoTTY, Description: "Plain text (no styling)"},
	{Name: StyleASCII, Description: "ASCII-only output"},
}

// IsBuiltinStyle reports whether style names a glamour standard style
// rather than a style file.
func IsBuiltinStyle(style string) bool {
	for _, t := range markdownThemes {
		if t.Name == style {
			return true
		}
	}
	return false
}

// AvailableThemes lists the built-in markdown styles.
func AvailableThemes() []ThemeInfo {
	out := make([]ThemeInfo, len(markdownThemes))
	copy(out, markdownThemes)
	return out
}

// ThemeNames returns the names of the built-in markdown styles.
func ThemeNames() []string {
	names := make([]string, len(markdownThemes))
	for i, t := range markdownThemes {
		names[i] = t.Name
	}
	return names
}
