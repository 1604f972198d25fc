package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// slashCommand is a parsed "/name args" line typed into the composer
type slashCommand struct {
	name string
	args string
}

// parseSlash splits a composer line into a command. Lines that do not start
// with "/" are chat messages.
func parseSlash(input string) (slashCommand, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) == 1 {
		return slashCommand{}, false
	}
	name, args, _ := strings.Cut(input[1:], " ")
	return slashCommand{
		name: strings.ToLower(name),
		args: strings.TrimSpace(args),
	}, true
}

// blockArg parses the leading 1-based code block number of args and returns
// it with the remaining text
func blockArg(args string) (int, string, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if first == "" {
		return 0, "", fmt.Errorf("missing code block number")
	}
	n, err := strconv.Atoi(first)
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("invalid code block number %q", first)
	}
	return n, strings.TrimSpace(rest), nil
}

var slashHelp = []struct {
	usage string
	desc  string
}{
	{"/new", "start a new conversation"},
	{"/load <ref>", "load a conversation by id, index, prefix or title"},
	{"/conversations", "open the conversation list (ctrl+o)"},
	{"/analyze <question>", "ask about the project of this conversation"},
	{"/paths <feature>", "list files relevant to a feature"},
	{"/files a, b", "attach file paths to the next message (empty clears)"},
	{"/retry", "resend the last unanswered message"},
	{"/code [n]", "browse extracted code blocks (ctrl+b)"},
	{"/copy <n>", "copy code block n to the clipboard"},
	{"/save <n> <path>", "save code block n through the backend"},
	{"/write <n> <path>", "write code block n to a local file"},
	{"/reset", "forget the current conversation locally"},
	{"/help", "show this help"},
	{"/quit", "exit"},
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, h := range slashHelp {
		fmt.Fprintf(&sb, "  %-20s %s\n", h.usage, h.desc)
	}
	return strings.TrimRight(sb.String(), "\n")
}
