package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/codechat/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat accepts "md", "markdown" and "json"
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
}

// Extension returns the file extension for the format
func (f ExportFormat) Extension() string {
	if f == ExportFormatJSON {
		return ".json"
	}
	return ".md"
}

// Transcript is a conversation ready for export
type Transcript struct {
	ID                string
	Title             string
	Summary           string
	ProjectFolderPath string
	Messages          []models.Message
	ExportedAt        time.Time
}

// NewTranscript builds a Transcript from a loaded conversation
func NewTranscript(conv *models.LoadedConversation, title string) Transcript {
	if title == "" {
		title = models.ConversationSummary{ID: conv.ID}.DisplayTitle()
	}
	return Transcript{
		ID:                conv.ID,
		Title:             title,
		Summary:           conv.Summary,
		ProjectFolderPath: conv.ProjectFolderPath,
		Messages:          conv.Messages,
		ExportedAt:        time.Now(),
	}
}

// Export renders t in the given format
func Export(t Transcript, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return ExportToJSON(t)
	case ExportFormatMarkdown:
		return []byte(ExportToMarkdown(t)), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// ExportToMarkdown renders a transcript as Markdown
func ExportToMarkdown(t Transcript) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(t.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Conversation:** ")
	sb.WriteString(t.ID)
	sb.WriteString("\n")
	if t.ProjectFolderPath != "" {
		sb.WriteString("**Project:** ")
		sb.WriteString(t.ProjectFolderPath)
		sb.WriteString("\n")
	}
	if !t.ExportedAt.IsZero() {
		sb.WriteString("**Exported:** ")
		sb.WriteString(t.ExportedAt.Format("2006-01-02 15:04:05"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n", len(t.Messages)))

	if t.Summary != "" {
		sb.WriteString("\n> ")
		sb.WriteString(strings.ReplaceAll(t.Summary, "\n", "\n> "))
		sb.WriteString("\n")
	}
	sb.WriteString("\n---\n\n")

	for i, msg := range t.Messages {
		sb.WriteString("## ")
		sb.WriteString(msg.Sender.Label())
		sb.WriteString("\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		for _, block := range msg.CodeBlocks {
			sb.WriteString("\n### ")
			sb.WriteString(block.Title)
			sb.WriteString("\n\n```")
			sb.WriteString(block.Language)
			sb.WriteString("\n")
			sb.WriteString(block.Code)
			sb.WriteString("\n```\n")
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportToJSON renders a transcript as indented JSON
func ExportToJSON(t Transcript) ([]byte, error) {
	type exportMessage struct {
		Sender     string                `json:"sender"`
		Text       string                `json:"text"`
		CodeBlocks []models.CodeBlockRef `json:"code_blocks,omitempty"`
	}

	type exportConversation struct {
		ID                string          `json:"conversation_id"`
		Title             string          `json:"title"`
		Summary           string          `json:"summary,omitempty"`
		ProjectFolderPath string          `json:"project_folder_path,omitempty"`
		ExportedAt        time.Time       `json:"exported_at"`
		Messages          []exportMessage `json:"messages"`
	}

	export := exportConversation{
		ID:                t.ID,
		Title:             t.Title,
		Summary:           t.Summary,
		ProjectFolderPath: t.ProjectFolderPath,
		ExportedAt:        t.ExportedAt,
		Messages:          make([]exportMessage, len(t.Messages)),
	}
	for i, msg := range t.Messages {
		export.Messages[i] = exportMessage{
			Sender:     string(msg.Sender),
			Text:       msg.Text,
			CodeBlocks: msg.CodeBlocks,
		}
	}

	return json.MarshalIndent(export, "", "  ")
}
