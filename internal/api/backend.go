package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/models"
)

// Fallback messages used when a failed response carries no explanation
const (
	refineFailureMessage = "Failed to refine the prompt."
	checkFailureMessage  = "An error occurred"
)

type sendMessageRequest struct {
	Messages       []string `json:"messages"`
	FilePaths      []string `json:"file_paths"`
	ConversationID *string  `json:"conversation_id"`
}

type conversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type analyzeRequest struct {
	ConversationID string `json:"conversation_id"`
	UserQuestion   string `json:"user_question"`
}

type filePathsRequest struct {
	FeatureRequest string `json:"feature_request"`
	ConversationID string `json:"conversation_id"`
}

type checkCodeRequest struct {
	UserPrompt string `json:"user_prompt"`
	Code       string `json:"code"`
}

// postJSON marshals payload and posts it to endpoint
func (c *BackendClient) postJSON(ctx context.Context, endpoint string, payload interface{}) (exchange, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return exchange{}, apierrors.NewParseError("failed to encode request: "+err.Error(), "")
	}
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// decodeEnvelope validates the {status, ...} envelope shared by most
// endpoints and returns the parsed body. Failures carry the backend message,
// then its error field, then fallback.
func decodeEnvelope(endpoint string, ex exchange, fallback string) (gjson.Result, error) {
	if !gjson.ValidBytes(ex.body) {
		if !ex.ok() {
			return gjson.Result{}, apierrors.NewBackendError(ex.status, endpoint, fallback)
		}
		return gjson.Result{}, apierrors.NewParseError("invalid JSON in response", "")
	}

	result := gjson.ParseBytes(ex.body)
	if !ex.ok() || result.Get("status").String() != models.StatusSuccess {
		return result, apierrors.NewBackendError(ex.status, endpoint, failureMessage(result, fallback))
	}
	return result, nil
}

func failureMessage(result gjson.Result, fallback string) string {
	for _, field := range []string{"message", "error"} {
		if msg := strings.TrimSpace(result.Get(field).String()); msg != "" {
			return msg
		}
	}
	return fallback
}

// requireString returns the string at path, or a ParseError when it is absent
func requireString(result gjson.Result, path string) (string, error) {
	v := result.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return "", apierrors.NewParseError("missing field", path)
	}
	if v.Type != gjson.String {
		return "", apierrors.NewParseError("expected a string", path)
	}
	return v.String(), nil
}

// SendMessage sends the full ordered text history of the conversation.
// An empty conversationID is sent as null so the backend creates one.
func (c *BackendClient) SendMessage(ctx context.Context, history []string, filePaths []string, conversationID string) (*models.SendResult, error) {
	req := sendMessageRequest{
		Messages:  history,
		FilePaths: filePaths,
	}
	if req.Messages == nil {
		req.Messages = []string{}
	}
	if req.FilePaths == nil {
		req.FilePaths = []string{}
	}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	ex, err := c.postJSON(ctx, models.EndpointSendMessage, req)
	if err != nil {
		return nil, err
	}

	result, err := decodeEnvelope(models.EndpointSendMessage, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return nil, err
	}

	reply, err := requireString(result, "ai_response")
	if err != nil {
		return nil, err
	}

	return &models.SendResult{
		AIResponse:     strings.TrimSpace(reply),
		ConversationID: result.Get("conversation_id").String(),
	}, nil
}

// LoadConversation fetches a stored conversation with all of its messages
func (c *BackendClient) LoadConversation(ctx context.Context, conversationID string) (*models.LoadedConversation, error) {
	ex, err := c.postJSON(ctx, models.EndpointLoadConversation, conversationRequest{ConversationID: conversationID})
	if err != nil {
		return nil, err
	}

	result, err := decodeEnvelope(models.EndpointLoadConversation, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return nil, err
	}

	raw := result.Get("messages")
	if !raw.IsArray() {
		return nil, apierrors.NewParseError("expected an array", "messages")
	}

	loaded := &models.LoadedConversation{
		ID:                conversationID,
		Messages:          make([]models.Message, 0, len(raw.Array())),
		Summary:           result.Get("summary").String(),
		ProjectFolderPath: result.Get("project_folder_path").String(),
	}
	if id := result.Get("conversation_id").String(); id != "" {
		loaded.ID = id
	}

	for i, m := range raw.Array() {
		text := m.Get("text")
		if !text.Exists() {
			return nil, apierrors.NewParseError("missing field", "messages."+strconv.Itoa(i)+".text")
		}
		loaded.Messages = append(loaded.Messages, models.Message{
			Text:   text.String(),
			Sender: models.ParseSender(m.Get("sender").String()),
		})
	}

	return loaded, nil
}

// StartConversation asks the backend for a fresh conversation id
func (c *BackendClient) StartConversation(ctx context.Context) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointStartConversation, struct{}{})
	if err != nil {
		return "", err
	}

	result, err := decodeEnvelope(models.EndpointStartConversation, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return "", err
	}

	id, err := requireString(result, "conversation_id")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", apierrors.NewParseError("empty conversation id", "conversation_id")
	}
	return id, nil
}

// ListConversations returns the conversations known to the backend
func (c *BackendClient) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	ex, err := c.do(ctx, http.MethodGet, models.EndpointListConversations, nil)
	if err != nil {
		return nil, err
	}

	result, err := decodeEnvelope(models.EndpointListConversations, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return nil, err
	}

	raw := result.Get("conversations")
	if !raw.Exists() || raw.Type == gjson.Null {
		return []models.ConversationSummary{}, nil
	}
	if !raw.IsArray() {
		return nil, apierrors.NewParseError("expected an array", "conversations")
	}

	list := make([]models.ConversationSummary, 0, len(raw.Array()))
	for _, item := range raw.Array() {
		id := item.Get("conversationId").String()
		if id == "" {
			id = item.Get("conversation_id").String()
		}
		if id == "" {
			continue
		}
		list = append(list, models.ConversationSummary{ID: id, Title: item.Get("title").String()})
	}
	return list, nil
}

// AnalyzeProject asks a free-form question about the project bound to the conversation
func (c *BackendClient) AnalyzeProject(ctx context.Context, conversationID, question string) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointAnalyzeProject, analyzeRequest{
		ConversationID: conversationID,
		UserQuestion:   question,
	})
	if err != nil {
		return "", err
	}

	result, err := decodeEnvelope(models.EndpointAnalyzeProject, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return "", err
	}
	return requireString(result, "response")
}

// GetFilePaths asks which project files are relevant to a feature request
func (c *BackendClient) GetFilePaths(ctx context.Context, featureRequest, conversationID string) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointFilePaths, filePathsRequest{
		FeatureRequest: featureRequest,
		ConversationID: conversationID,
	})
	if err != nil {
		return "", err
	}

	result, err := decodeEnvelope(models.EndpointFilePaths, ex, "An error occurred.")
	if err != nil {
		return "", err
	}
	return requireString(result, "response")
}

// RefinePrompt turns a structured template into a refined prompt
func (c *BackendClient) RefinePrompt(ctx context.Context, tmpl models.PromptTemplate) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointRefinePrompt, tmpl)
	if err != nil {
		return "", err
	}

	result, err := decodeEnvelope(models.EndpointRefinePrompt, ex, refineFailureMessage)
	if err != nil {
		return "", err
	}
	return requireString(result, "refined_prompt")
}

// SaveFile asks the backend to write code to a path on its host
func (c *BackendClient) SaveFile(ctx context.Context, req models.SaveFileRequest) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointSaveFile, req)
	if err != nil {
		return "", err
	}

	result, err := decodeEnvelope(models.EndpointSaveFile, ex, apierrors.GenericFailureMessage)
	if err != nil {
		return "", err
	}

	msg := result.Get("message").String()
	if msg == "" {
		msg = "File saved successfully!"
	}
	return msg, nil
}

// CheckCode asks the backend to review code against a prompt. This endpoint
// has no status field; the HTTP status decides success.
func (c *BackendClient) CheckCode(ctx context.Context, prompt, code string) (string, error) {
	ex, err := c.postJSON(ctx, models.EndpointCheckCode, checkCodeRequest{UserPrompt: prompt, Code: code})
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(ex.body) {
		if !ex.ok() {
			return "", apierrors.NewBackendError(ex.status, models.EndpointCheckCode, checkFailureMessage)
		}
		return "", apierrors.NewParseError("invalid JSON in response", "")
	}

	result := gjson.ParseBytes(ex.body)
	if !ex.ok() {
		msg := result.Get("error").String()
		if msg == "" {
			msg = checkFailureMessage
		}
		return "", apierrors.NewBackendError(ex.status, models.EndpointCheckCode, msg)
	}
	return requireString(result, "response")
}
