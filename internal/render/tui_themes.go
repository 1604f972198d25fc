package render

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color palette of the interactive chat.
type TUITheme struct {
	Name        string
	Description string

	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	Primary   lipgloss.Color // user messages, focus
	Secondary lipgloss.Color // assistant messages
	Accent    lipgloss.Color // code blocks
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// DefaultTUITheme is used when no theme is configured
const DefaultTUITheme = "tokyonight"

func palette(name, desc string, hex [11]string) TUITheme {
	c := func(i int) lipgloss.Color { return lipgloss.Color(hex[i]) }
	return TUITheme{
		Name: name, Description: desc,
		Background: c(0), Surface: c(1), Border: c(2),
		Primary: c(3), Secondary: c(4), Accent: c(5), Warning: c(6), Error: c(7),
		Text: c(8), TextDim: c(9), TextMute: c(10),
	}
}

var tuiThemes = map[string]TUITheme{
	"tokyonight": palette("tokyonight", "Tokyo Night, dark with blue accents", [11]string{
		"#1a1b26", "#24283b", "#414868",
		"#7aa2f7", "#9ece6a", "#bb9af7", "#e0af68", "#f7768e",
		"#c0caf5", "#565f89", "#3b4261",
	}),
	"catppuccin": palette("catppuccin", "Catppuccin Mocha, warm pastels", [11]string{
		"#1e1e2e", "#313244", "#45475a",
		"#89b4fa", "#a6e3a1", "#cba6f7", "#f9e2af", "#f38ba8",
		"#cdd6f4", "#6c7086", "#45475a",
	}),
	"nord": palette("nord", "Nord, cool arctic tones", [11]string{
		"#2e3440", "#3b4252", "#4c566a",
		"#88c0d0", "#a3be8c", "#b48ead", "#ebcb8b", "#bf616a",
		"#eceff4", "#7b88a1", "#4c566a",
	}),
	"dracula": palette("dracula", "Dracula, vibrant dark", [11]string{
		"#282a36", "#44475a", "#6272a4",
		"#8be9fd", "#50fa7b", "#ff79c6", "#f1fa8c", "#ff5555",
		"#f8f8f2", "#6272a4", "#44475a",
	}),
	"light": palette("light", "Light background", [11]string{
		"#fafafa", "#eeeeee", "#c0c0c0",
		"#005f87", "#2e7d32", "#6a1b9a", "#b26a00", "#c62828",
		"#1f1f1f", "#6b6b6b", "#a0a0a0",
	}),
}

var (
	themeMu      sync.RWMutex
	currentTheme = tuiThemes[DefaultTUITheme]
)

// GetTUITheme returns the active theme.
func GetTUITheme() TUITheme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// SetTUITheme activates the named theme. Unknown names leave the active
// theme unchanged and return false.
func SetTUITheme(name string) bool {
	theme, ok := GetTUIThemeByName(name)
	if !ok {
		return false
	}
	themeMu.Lock()
	currentTheme = theme
	themeMu.Unlock()
	return true
}

// GetTUIThemeByName looks a theme up by name.
func GetTUIThemeByName(name string) (TUITheme, bool) {
	t, ok := tuiThemes[name]
	return t, ok
}

// TUIThemeNames returns the theme names in sorted order.
func TUIThemeNames() []string {
	names := make([]string, 0, len(tuiThemes))
	for n := range tuiThemes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
