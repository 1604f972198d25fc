package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/codechat/internal/models"
)

const newConversationLabel = "+ New Conversation"

// conversationsLoadedMsg carries the result of list-conversations
type conversationsLoadedMsg struct {
	conversations []models.ConversationSummary
	err           error
}

// sidebarChoice is what the user picked in the sidebar
type sidebarChoice struct {
	isNew bool
	id    string
}

// sidebarModel lists backend conversations. Index 0 is always the
// "+ New Conversation" entry.
type sidebarModel struct {
	conversations []models.ConversationSummary
	cursor        int
	loading       bool
	err           error
	filter        string
}

func newSidebar() sidebarModel {
	return sidebarModel{loading: true}
}

// visible returns the conversations matching the filter
func (s sidebarModel) visible() []models.ConversationSummary {
	if s.filter == "" {
		return s.conversations
	}
	f := strings.ToLower(s.filter)
	var out []models.ConversationSummary
	for _, c := range s.conversations {
		if strings.Contains(strings.ToLower(c.DisplayTitle()), f) ||
			strings.HasPrefix(strings.ToLower(c.ID), f) {
			out = append(out, c)
		}
	}
	return out
}

// update handles a message for the sidebar. done is true when the sidebar
// should close; choice is set when the user confirmed an entry.
func (s sidebarModel) update(msg tea.Msg) (sidebarModel, *sidebarChoice, bool) {
	switch msg := msg.(type) {
	case conversationsLoadedMsg:
		s.loading = false
		s.err = msg.err
		s.conversations = msg.conversations
		s.cursor = 0

	case tea.KeyMsg:
		if s.loading {
			if msg.String() == "esc" {
				return s, nil, true
			}
			return s, nil, false
		}
		items := len(s.visible()) + 1

		switch msg.String() {
		case "esc", "ctrl+o":
			return s, nil, true

		case "up", "ctrl+k":
			s.cursor--
			if s.cursor < 0 {
				s.cursor = items - 1
			}

		case "down", "ctrl+j":
			s.cursor++
			if s.cursor >= items {
				s.cursor = 0
			}

		case "home":
			s.cursor = 0

		case "end":
			s.cursor = items - 1

		case "enter":
			if s.cursor == 0 {
				return s, &sidebarChoice{isNew: true}, true
			}
			conv := s.visible()[s.cursor-1]
			return s, &sidebarChoice{id: conv.ID}, true

		case "backspace":
			if s.filter != "" {
				r := []rune(s.filter)
				s.filter = string(r[:len(r)-1])
				s.cursor = 0
			}

		default:
			if msg.Type == tea.KeyRunes {
				s.filter += string(msg.Runes)
				s.cursor = 0
			}
		}
	}
	return s, nil, false
}

func (s sidebarModel) view(width, height int, activeID string) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Conversations"))
	b.WriteString("\n")

	if s.filter != "" {
		b.WriteString(inputLabelStyle.Render("filter:") + " " + s.filter + "_\n\n")
	}

	switch {
	case s.loading:
		b.WriteString(loadingStyle.Render("  Loading conversations..."))
	case s.err != nil:
		b.WriteString(FormatError(s.err))
	default:
		b.WriteString(s.renderItem(0, newConversationLabel, false))
		b.WriteString("\n")

		list := s.visible()
		if len(list) == 0 {
			b.WriteString(hintStyle.Render("  No conversations"))
		}

		maxItems := max(5, height-12)
		offset := 0
		if s.cursor > maxItems {
			offset = s.cursor - maxItems
		}
		end := min(offset+maxItems, len(list))
		if offset > 0 {
			b.WriteString(hintStyle.Render("  ...") + "\n")
		}
		for i := offset; i < end; i++ {
			c := list[i]
			line := s.renderItem(i+1, c.DisplayTitle(), c.ID == activeID)
			b.WriteString(line + "\n")
		}
		if end < len(list) {
			b.WriteString(hintStyle.Render("  ...") + "\n")
		}
	}

	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("Type") + statusDescStyle.Render(" Filter"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Close"),
	}
	b.WriteString(panelStatusBarStyle.Render(strings.Join(shortcuts, "  │  ")))

	return panelStyle.Width(max(40, width-8)).Render(b.String())
}

func (s sidebarModel) renderItem(index int, title string, active bool) string {
	cursor := "  "
	style := menuItemStyle
	if index == s.cursor {
		cursor = menuCursorStyle.Render("▸ ")
		style = menuSelectedStyle
	}
	line := fmt.Sprintf("%s%s", cursor, style.Render(title))
	if active {
		line += activeMarkerStyle.Render(" ●")
	}
	return line
}
