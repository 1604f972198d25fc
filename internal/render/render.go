package render

import (
	"fmt"
	"strings"

	"github.com/diogo/codechat/internal/models"
)

// Markdown renders markdown content for the terminal.
func Markdown(content string, opts Options) (string, error) {
	r, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, r)

	return r.Render(content)
}

// MarkdownOrPlain renders content and falls back to the raw text when the
// renderer fails.
func MarkdownOrPlain(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return out
}

// CodeBlockMarkdown wraps a code block in a fenced block under its title.
func CodeBlockMarkdown(block models.CodeBlockRef) string {
	fence := "```"
	for strings.Contains(block.Code, fence) {
		fence += "`"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**", block.Title)
	if block.Language != "" {
		fmt.Fprintf(&sb, " _(%s)_", block.Language)
	}
	sb.WriteString("\n\n")
	sb.WriteString(fence)
	sb.WriteString(block.Language)
	sb.WriteString("\n")
	sb.WriteString(block.Code)
	if !strings.HasSuffix(block.Code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence)
	sb.WriteString("\n")
	return sb.String()
}

// CodeBlock renders a single extracted code block with syntax highlighting.
func CodeBlock(block models.CodeBlockRef, opts Options) (string, error) {
	return Markdown(CodeBlockMarkdown(block), opts)
}

// CodeBlockSummary is the one-line reference shown in place of a block
// that was lifted out of a message.
func CodeBlockSummary(index int, block models.CodeBlockRef) string {
	lang := block.Language
	if lang == "" {
		lang = "text"
	}
	return fmt.Sprintf("[%d] %s (%s, %d lines)", index, block.Title, lang, block.LineCount())
}
