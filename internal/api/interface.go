package api

import (
	"context"

	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/models"
)

// BackendClientInterface defines the interface for the chat backend client.
// This allows for mocking in tests and alternative implementations.
type BackendClientInterface interface {
	SendMessage(ctx context.Context, history []string, filePaths []string, conversationID string) (*models.SendResult, error)
	LoadConversation(ctx context.Context, conversationID string) (*models.LoadedConversation, error)
	StartConversation(ctx context.Context) (string, error)
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	AnalyzeProject(ctx context.Context, conversationID, question string) (string, error)
	GetFilePaths(ctx context.Context, featureRequest, conversationID string) (string, error)
	RefinePrompt(ctx context.Context, tmpl models.PromptTemplate) (string, error)
	SaveFile(ctx context.Context, req models.SaveFileRequest) (string, error)
	CheckCode(ctx context.Context, prompt, code string) (string, error)

	GetCookies() *config.Cookies
	SetCookies(cookies *config.Cookies)
	BaseURL() string
}

// Ensure BackendClient implements BackendClientInterface
var _ BackendClientInterface = (*BackendClient)(nil)
