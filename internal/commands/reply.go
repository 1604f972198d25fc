package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/models"
	"github.com/diogo/codechat/internal/render"
)

// replyMarkdown puts the extracted code blocks back under the reply text
func replyMarkdown(text string, blocks []models.CodeBlockRef) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(text))
	for _, b := range blocks {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimRight(render.CodeBlockMarkdown(b), "\n"))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// printReply writes a chat reply to --output, the clipboard and stdout
func printReply(deps *Dependencies, copyToClipboard bool, md config.MarkdownConfig, text string) error {
	if copyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			printWarning(deps.Stderr, "Failed to copy to clipboard: %v", err)
		} else {
			printSuccess(deps.Stderr, "Copied to clipboard")
		}
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		printSuccess(deps.Stderr, "Response saved to %s", outputFlag)
		return nil
	}

	printAssistant(deps, "✦ Assistant", text, md)
	return nil
}

// printAssistant prints text as-is when stdout is not a terminal, and as
// rendered markdown inside a bubble when it is
func printAssistant(deps *Dependencies, label, text string, md config.MarkdownConfig) {
	if !isTerminal(deps.Stdout) {
		fmt.Fprint(deps.Stdout, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(deps.Stdout)
		}
		return
	}

	width := bubbleWidth(getTerminalWidth(deps.Stdout))
	rendered := render.MarkdownOrPlain(text, render.OptionsFromConfig(md, width-4))
	rendered = strings.TrimRight(rendered, "\n")

	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render(label))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(width).Render(rendered))
}
