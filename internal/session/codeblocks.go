package session

import (
	"fmt"
	"strings"

	"github.com/diogo/codechat/internal/models"
)

// CodeBlockLineThreshold is the longest fenced block body, in lines, that
// stays inline in a message
const CodeBlockLineThreshold = 5

const fence = "```"

// ExtractCodeBlocks lifts fenced code blocks longer than
// CodeBlockLineThreshold out of text. Extracted blocks are titled
// "Code Block N" starting at start+1. Shorter blocks and unterminated fences
// are left in place. The returned slice is never nil.
func ExtractCodeBlocks(text string, start int) (string, []models.CodeBlockRef) {
	refs := []models.CodeBlockRef{}
	if !strings.Contains(text, fence) {
		return text, refs
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	// set after a removal so the blank lines around the gap collapse
	removed := false

	for i := 0; i < len(lines); i++ {
		lang, width, ok := openingFence(lines[i])
		if !ok {
			blank := strings.TrimSpace(lines[i]) == ""
			if removed && blank && (len(kept) == 0 || strings.TrimSpace(kept[len(kept)-1]) == "") {
				continue
			}
			if !blank {
				removed = false
			}
			kept = append(kept, lines[i])
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			if closesFence(lines[j], width) {
				end = j
				break
			}
		}
		if end == -1 {
			// unterminated: keep the rest verbatim
			kept = append(kept, lines[i:]...)
			break
		}

		body := lines[i+1 : end]
		if len(body) <= CodeBlockLineThreshold {
			kept = append(kept, lines[i:end+1]...)
			removed = false
		} else {
			removed = true
			refs = append(refs, models.CodeBlockRef{
				Title:    fmt.Sprintf("Code Block %d", start+len(refs)+1),
				Language: lang,
				Code:     strings.Join(body, "\n"),
			})
		}
		i = end
	}

	if len(refs) == 0 {
		return text, refs
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), refs
}

// openingFence reports whether line opens a fenced block and returns its
// language tag and the length of its backtick run
func openingFence(line string) (string, int, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, fence) {
		return "", 0, false
	}
	rest := strings.TrimLeft(trimmed, "`")
	lang := strings.TrimSpace(rest)
	if strings.Contains(lang, "`") {
		// inline code such as ```x``` on one line
		return "", 0, false
	}
	return lang, len(trimmed) - len(rest), true
}

// closesFence reports whether line is a run of at least width backticks
// and nothing else
func closesFence(line string, width int) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= width && strings.Trim(trimmed, "`") == ""
}
