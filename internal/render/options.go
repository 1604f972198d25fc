// Package render turns chat text into styled terminal output.
package render

// Options configures the markdown renderer.
type Options struct {
	// Width is the word-wrap column; zero or less disables wrapping
	Width int

	// Style is a glamour standard style name or a path to a JSON style file
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the options used when no configuration is loaded.
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            StyleDark,
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns a copy of o with the given width.
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns a copy of o with the given style.
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}
