package models

// ConversationSummary is one entry of the backend conversation list
type ConversationSummary struct {
	ID    string `json:"conversationId"`
	Title string `json:"title"`
}

// DisplayTitle returns the title, or a short id-based name when the backend
// did not provide one
func (c ConversationSummary) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	id := c.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Conversation " + id
}

// LoadedConversation is the payload of a successful load-conversation call
type LoadedConversation struct {
	ID                string    `json:"conversation_id"`
	Messages          []Message `json:"messages"`
	Summary           string    `json:"summary,omitempty"`
	ProjectFolderPath string    `json:"project_folder_path,omitempty"`
}

// SendResult is the payload of a successful send-message call
type SendResult struct {
	AIResponse     string
	ConversationID string
}

// PromptTemplate holds the structured fields of a prompt refinement request
type PromptTemplate struct {
	Purpose       string `json:"purpose"`
	Functionality string `json:"functionality"`
	Data          string `json:"data"`
	Design        string `json:"design,omitempty"`
	Integration   string `json:"integration,omitempty"`
}

// SaveFileRequest asks the backend to write code to a path on its host
type SaveFileRequest struct {
	FilePath string `json:"file_path"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}
