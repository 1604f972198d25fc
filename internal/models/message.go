// Package models contains data types and constants for the chat backend.
package models

import "strings"

// Sender identifies who authored a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "llm"
)

// ParseSender maps a backend sender value to a Sender.
// Only "user" is a user message; every other value is treated as the assistant.
func ParseSender(s string) Sender {
	if strings.EqualFold(strings.TrimSpace(s), string(SenderUser)) {
		return SenderUser
	}
	return SenderAssistant
}

// Label returns the display name for the sender
func (s Sender) Label() string {
	if s == SenderUser {
		return "You"
	}
	return "Assistant"
}

// CodeBlockRef is a long fenced code block lifted out of an assistant reply
type CodeBlockRef struct {
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

// LineCount returns the number of lines in the block body
func (c CodeBlockRef) LineCount() int {
	if c.Code == "" {
		return 0
	}
	return strings.Count(c.Code, "\n") + 1
}

// Message represents a chat message. Messages are never mutated after they
// are appended to a conversation.
type Message struct {
	Text       string         `json:"text"`
	Sender     Sender         `json:"sender"`
	CodeBlocks []CodeBlockRef `json:"code_blocks,omitempty"`
}

// IsUser reports whether the message was authored by the user
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// Clone returns a copy that shares no slices with m
func (m Message) Clone() Message {
	out := m
	if m.CodeBlocks != nil {
		out.CodeBlocks = make([]CodeBlockRef, len(m.CodeBlocks))
		copy(out.CodeBlocks, m.CodeBlocks)
	}
	return out
}

// Texts returns the text of each message, in order
func Texts(messages []Message) []string {
	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}
	return texts
}
