package models

// DefaultBaseURL is where the backend listens when nothing is configured
const DefaultBaseURL = "http://127.0.0.1:8000"

// Backend endpoint paths, relative to the base URL
const (
	EndpointSendMessage       = "/chat/"
	EndpointLoadConversation  = "/chat/load-conversation/"
	EndpointStartConversation = "/chat/start-conversation/"
	EndpointListConversations = "/chat/list-conversations/"
	EndpointAnalyzeProject    = "/chat/analyze-project/"
	EndpointSaveFile          = "/chat/save-file/"
	EndpointFilePaths         = "/prompt/get-file-paths/"
	EndpointRefinePrompt      = "/prompt/refine/"
	EndpointCheckCode         = "/check/"
)

// StatusSuccess is the only status value the backend uses for success
const StatusSuccess = "success"

// DefaultHeaders returns the headers sent with every backend request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "codechat",
	}
}
