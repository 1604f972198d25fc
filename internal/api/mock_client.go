package api

import (
	"context"
	"sync"

	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/models"
)

// SendMessageCall records the arguments of one SendMessage call
type SendMessageCall struct {
	History        []string
	FilePaths      []string
	ConversationID string
}

// MockBackendClient is a mock implementation of BackendClientInterface for testing.
// It is safe for concurrent use. When Gate is non-nil, SendMessage,
// LoadConversation and StartConversation block until it is closed or
// receives a value.
type MockBackendClient struct {
	mu sync.Mutex

	// Mock return values
	SendMessageVal        *models.SendResult
	SendMessageErr        error
	SendMessageFunc       func(call SendMessageCall) (*models.SendResult, error)
	LoadConversationVal   *models.LoadedConversation
	LoadConversationErr   error
	StartConversationVal  string
	StartConversationErr  error
	ListConversationsVal  []models.ConversationSummary
	ListConversationsErr  error
	AnalyzeProjectVal     string
	AnalyzeProjectErr     error
	GetFilePathsVal       string
	GetFilePathsErr       error
	RefinePromptVal       string
	RefinePromptErr       error
	SaveFileVal           string
	SaveFileErr           error
	CheckCodeVal          string
	CheckCodeErr          error
	Cookies               *config.Cookies
	BaseURLVal            string
	Gate                  chan struct{}

	// Call recorders
	sendCalls     []SendMessageCall
	loadCalls     []string
	startCalls    int
	listCalls     int
	analyzeCalls  []string
	pathsCalls    []string
	lastTemplate  models.PromptTemplate
	lastSave      models.SaveFileRequest
	lastCheckCode string
}

// Ensure MockBackendClient implements BackendClientInterface
var _ BackendClientInterface = (*MockBackendClient)(nil)

func (m *MockBackendClient) wait(ctx context.Context) error {
	m.mu.Lock()
	gate := m.Gate
	m.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockBackendClient) SendMessage(ctx context.Context, history []string, filePaths []string, conversationID string) (*models.SendResult, error) {
	call := SendMessageCall{
		History:        append([]string(nil), history...),
		FilePaths:      append([]string(nil), filePaths...),
		ConversationID: conversationID,
	}
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, call)
	fn := m.SendMessageFunc
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SendMessageVal, m.SendMessageErr
}

func (m *MockBackendClient) LoadConversation(ctx context.Context, conversationID string) (*models.LoadedConversation, error) {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, conversationID)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LoadConversationVal, m.LoadConversationErr
}

func (m *MockBackendClient) StartConversation(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.startCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StartConversationVal, m.StartConversationErr
}

func (m *MockBackendClient) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.ListConversationsVal, m.ListConversationsErr
}

func (m *MockBackendClient) AnalyzeProject(ctx context.Context, conversationID, question string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzeCalls = append(m.analyzeCalls, question)
	return m.AnalyzeProjectVal, m.AnalyzeProjectErr
}

func (m *MockBackendClient) GetFilePaths(ctx context.Context, featureRequest, conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pathsCalls = append(m.pathsCalls, featureRequest)
	return m.GetFilePathsVal, m.GetFilePathsErr
}

func (m *MockBackendClient) RefinePrompt(ctx context.Context, tmpl models.PromptTemplate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTemplate = tmpl
	return m.RefinePromptVal, m.RefinePromptErr
}

func (m *MockBackendClient) SaveFile(ctx context.Context, req models.SaveFileRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSave = req
	return m.SaveFileVal, m.SaveFileErr
}

func (m *MockBackendClient) CheckCode(ctx context.Context, prompt, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCheckCode = code
	return m.CheckCodeVal, m.CheckCodeErr
}

func (m *MockBackendClient) GetCookies() *config.Cookies {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cookies
}

func (m *MockBackendClient) SetCookies(cookies *config.Cookies) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cookies = cookies
}

func (m *MockBackendClient) BaseURL() string {
	if m.BaseURLVal == "" {
		return models.DefaultBaseURL
	}
	return m.BaseURLVal
}

// SendCalls returns the recorded SendMessage calls
func (m *MockBackendClient) SendCalls() []SendMessageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendMessageCall(nil), m.sendCalls...)
}

// LoadCalls returns the ids passed to LoadConversation
func (m *MockBackendClient) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

// StartCalls returns how many times StartConversation was called
func (m *MockBackendClient) StartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls
}

// ListCalls returns how many times ListConversations was called
func (m *MockBackendClient) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// AnalyzeCalls returns the questions passed to AnalyzeProject
func (m *MockBackendClient) AnalyzeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.analyzeCalls...)
}

// PathsCalls returns the feature requests passed to GetFilePaths
func (m *MockBackendClient) PathsCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pathsCalls...)
}

// LastTemplate returns the template passed to the last RefinePrompt call
func (m *MockBackendClient) LastTemplate() models.PromptTemplate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTemplate
}

// LastSave returns the request passed to the last SaveFile call
func (m *MockBackendClient) LastSave() models.SaveFileRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// LastCheckCode returns the code passed to the last CheckCode call
func (m *MockBackendClient) LastCheckCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheckCode
}
