package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/codechat/internal/render"
	"github.com/diogo/codechat/internal/session"
)

// codeViewer pages through the code blocks lifted out of assistant replies
type codeViewer struct {
	blocks   []session.BlockLocation
	index    int
	viewport viewport.Model
	opts     render.Options
}

func newCodeViewer(blocks []session.BlockLocation, index, width, height int, opts render.Options) codeViewer {
	if index < 0 || index >= len(blocks) {
		index = 0
	}
	v := codeViewer{
		blocks:   blocks,
		index:    index,
		viewport: viewport.New(max(20, width-8), max(5, height-10)),
		opts:     opts,
	}
	v.refresh()
	return v
}

func (v *codeViewer) refresh() {
	if len(v.blocks) == 0 {
		v.viewport.SetContent(hintStyle.Render("No code blocks yet"))
		return
	}
	block := v.blocks[v.index].Block
	out, err := render.CodeBlock(block, v.opts.WithWidth(v.viewport.Width-2))
	if err != nil {
		out = render.CodeBlockMarkdown(block)
	}
	v.viewport.SetContent(strings.TrimRight(out, "\n"))
	v.viewport.GotoTop()
}

// current returns the block on screen, if any
func (v codeViewer) current() (session.BlockLocation, bool) {
	if len(v.blocks) == 0 {
		return session.BlockLocation{}, false
	}
	return v.blocks[v.index], true
}

func (v codeViewer) update(msg tea.Msg) (codeViewer, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && len(v.blocks) > 0 {
		switch key.String() {
		case "tab", "right", "n":
			v.index = (v.index + 1) % len(v.blocks)
			v.refresh()
			return v, nil
		case "shift+tab", "left", "p":
			v.index = (v.index - 1 + len(v.blocks)) % len(v.blocks)
			v.refresh()
			return v, nil
		}
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v codeViewer) view(width int) string {
	title := "Code Blocks"
	if len(v.blocks) > 0 {
		title = fmt.Sprintf("Code Block %d of %d", v.index+1, len(v.blocks))
	}

	shortcuts := []string{
		statusKeyStyle.Render("Tab") + statusDescStyle.Render(" Next"),
		statusKeyStyle.Render("c") + statusDescStyle.Render(" Copy"),
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Scroll"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Close"),
	}

	content := panelTitleStyle.Render(title) + "\n" +
		v.viewport.View() + "\n" +
		panelStatusBarStyle.Render(strings.Join(shortcuts, "  │  "))
	return panelStyle.Width(max(40, width-4)).Render(content)
}
