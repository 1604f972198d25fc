package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/diogo/codechat/internal/api"
	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/history"
	"github.com/diogo/codechat/internal/models"
	"github.com/diogo/codechat/internal/render"
	"github.com/diogo/codechat/internal/session"
)

const codeReply = "Here you go:\n```go\nl1\nl2\nl3\nl4\nl5\nl6\n```\nDone."

func newTestModel(t *testing.T, mock *api.MockBackendClient, opts ...Option) Model {
	t.Helper()
	store := session.New(mock, history.NewSlot(history.NewMemoryKV()))
	opts = append([]Option{WithRenderOptions(render.DefaultOptions().WithStyle(render.StyleNoTTY))}, opts...)
	m := NewChatModel(context.Background(), store, mock, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

// runCmd executes cmd and every command it batches, returning the messages
// that are not UI ticks
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	switch msg.(type) {
	case nil, spinner.TickMsg:
		return nil
	}
	return []tea.Msg{msg}
}

// feed runs cmd and passes every resulting message back into the model
func feed(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func key(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

func TestChat_SubmitShowsUserMessageBeforeReply(t *testing.T) {
	gate := make(chan struct{})
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "Hi there", ConversationID: "conv-1"},
		Gate:           gate,
	}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "hello")
	if got := models.Texts(m.state.Messages); !cmp.Equal(got, []string{"hello"}) {
		t.Fatalf("messages before reply = %v, want [hello]", got)
	}
	if !m.state.Loading {
		t.Error("expected Loading while the reply is pending")
	}
	if m.textarea.Value() != "" {
		t.Errorf("composer not cleared: %q", m.textarea.Value())
	}
	if !strings.Contains(m.View(), "Waiting for the backend") {
		t.Error("view should show the waiting indicator")
	}

	close(gate)
	m = feed(t, m, cmd)

	if got := models.Texts(m.state.Messages); !cmp.Equal(got, []string{"hello", "Hi there"}) {
		t.Errorf("messages after reply = %v", got)
	}
	if m.state.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want conv-1", m.state.ConversationID)
	}
	if m.state.Loading {
		t.Error("Loading still set after reply")
	}
}

func TestChat_SubmitWhileBusyKeepsInput(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "ok", ConversationID: "c"},
		Gate:           gate,
	}
	m := newTestModel(t, mock)

	m, _ = enter(t, m, "first")
	m, cmd := enter(t, m, "second")

	if cmd != nil {
		t.Error("busy submit should not start a request")
	}
	if !errors.Is(m.localErr, session.ErrBusy) {
		t.Errorf("localErr = %v, want ErrBusy", m.localErr)
	}
	if m.textarea.Value() != "second" {
		t.Errorf("composer = %q, want the rejected text back", m.textarea.Value())
	}
	if len(m.state.Messages) != 1 {
		t.Errorf("busy submit appended a message: %v", models.Texts(m.state.Messages))
	}
	if got := m.store.Snapshot().Draft.Text; got != "" {
		t.Errorf("store draft = %q, want it untouched by the rejected submit", got)
	}
}

func TestChat_FailureThenRetry(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageErr: apierrors.NewBackendError(500, models.EndpointSendMessage, "model overloaded"),
	}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "hello")
	m = feed(t, m, cmd)

	if m.state.Error != "model overloaded" {
		t.Fatalf("state.Error = %q", m.state.Error)
	}
	if m.localErr != nil {
		t.Errorf("backend failure should live in the store state, got localErr %v", m.localErr)
	}
	view := m.View()
	if !strings.Contains(view, "model overloaded") || !strings.Contains(view, "ctrl+r") {
		t.Error("view should show the error and the retry hint")
	}

	mock.SendMessageErr = nil
	mock.SendMessageVal = &models.SendResult{AIResponse: "recovered", ConversationID: "c9"}

	m, cmd = key(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = feed(t, m, cmd)

	if got := models.Texts(m.state.Messages); !cmp.Equal(got, []string{"hello", "recovered"}) {
		t.Errorf("messages after retry = %v", got)
	}
	if len(mock.SendCalls()) != 2 {
		t.Errorf("send calls = %d, want 2", len(mock.SendCalls()))
	}
	if m.state.Error != "" {
		t.Errorf("error not cleared by retry: %q", m.state.Error)
	}
}

func TestChat_EscClearsErrorBeforeQuitting(t *testing.T) {
	m := newTestModel(t, &api.MockBackendClient{})
	m, _ = enter(t, m, "/bogus")
	if m.localErr == nil {
		t.Fatal("expected an error for an unknown command")
	}

	m, cmd := key(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.localErr != nil {
		t.Error("esc should clear the error")
	}
	if cmd != nil {
		t.Error("esc with an error on screen should not quit")
	}

	_, cmd = key(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("second esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second esc should return tea.Quit")
	}
}

func TestChat_NewConversation(t *testing.T) {
	mock := &api.MockBackendClient{StartConversationVal: "fresh-1"}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "/new")
	if !m.pending {
		t.Error("expected pending while starting")
	}
	m = feed(t, m, cmd)

	if m.state.ConversationID != "fresh-1" {
		t.Errorf("ConversationID = %q, want fresh-1", m.state.ConversationID)
	}
	if m.pending {
		t.Error("pending not cleared")
	}
}

func TestChat_LoadResolvesReference(t *testing.T) {
	mock := &api.MockBackendClient{
		ListConversationsVal: []models.ConversationSummary{
			{ID: "aaa111", Title: "Alpha"},
			{ID: "bbb222", Title: "Beta"},
		},
		LoadConversationVal: &models.LoadedConversation{
			ID: "bbb222",
			Messages: []models.Message{
				{Text: "q", Sender: models.SenderUser},
				{Text: "a", Sender: models.SenderAssistant},
			},
			Summary:           "Parser rewrite",
			ProjectFolderPath: "/src/parser",
		},
	}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "/load beta")
	m = feed(t, m, cmd)

	if diff := cmp.Diff([]string{"bbb222"}, mock.LoadCalls()); diff != "" {
		t.Errorf("load calls mismatch (-want +got):\n%s", diff)
	}
	if got := models.Texts(m.state.Messages); !cmp.Equal(got, []string{"q", "a"}) {
		t.Errorf("messages = %v", got)
	}
	view := m.View()
	if !strings.Contains(view, "Parser rewrite") || !strings.Contains(view, "/src/parser") {
		t.Error("header should show summary and project path")
	}
}

func TestChat_LoadUnknownReference(t *testing.T) {
	mock := &api.MockBackendClient{
		ListConversationsVal: []models.ConversationSummary{{ID: "aaa111", Title: "Alpha"}},
	}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "/load zzz")
	m = feed(t, m, cmd)

	if m.localErr == nil {
		t.Fatal("expected a resolve error")
	}
	if len(mock.LoadCalls()) != 0 {
		t.Errorf("unexpected load calls: %v", mock.LoadCalls())
	}
}

func TestChat_SlashUsageErrors(t *testing.T) {
	tests := []string{"/load", "/analyze", "/paths", "/copy", "/copy x", "/save 1", "/write 1", "/code zero"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			m := newTestModel(t, &api.MockBackendClient{})
			m, cmd := enter(t, m, input)
			if m.localErr == nil {
				t.Errorf("%s: expected a usage error", input)
			}
			if cmd != nil {
				t.Errorf("%s: usage error should not start a command", input)
			}
		})
	}
}

func TestChat_AnalyzeAndPaths(t *testing.T) {
	mock := &api.MockBackendClient{
		StartConversationVal: "c1",
		AnalyzeProjectVal:    "It is a parser.",
		GetFilePathsVal:      "src/lexer.go",
	}
	m := newTestModel(t, mock)

	m, cmd := enter(t, m, "/analyze what is it?")
	m = feed(t, m, cmd)
	if m.notice.text != session.NoActiveConversationMessage {
		t.Errorf("unbound analyze notice = %q", m.notice.text)
	}

	m, cmd = enter(t, m, "/new")
	m = feed(t, m, cmd)

	m, cmd = enter(t, m, "/analyze what is it?")
	m = feed(t, m, cmd)
	if m.notice.title != "Project analysis" || m.notice.text != "It is a parser." {
		t.Errorf("analyze notice = %+v", m.notice)
	}

	m, cmd = enter(t, m, "/paths add tokens")
	m = feed(t, m, cmd)
	if m.notice.text != "src/lexer.go" {
		t.Errorf("paths notice = %+v", m.notice)
	}
	if diff := cmp.Diff([]string{"add tokens"}, mock.PathsCalls()); diff != "" {
		t.Errorf("paths calls mismatch (-want +got):\n%s", diff)
	}
	if len(m.state.Messages) != 0 {
		t.Error("analyze and paths must not touch the message list")
	}

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.notice.text != "" {
		t.Error("esc should dismiss the notice")
	}
}

func TestChat_FilesAttachToNextMessage(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "ok", ConversationID: "c"},
	}
	m := newTestModel(t, mock)

	m, _ = enter(t, m, "/files a.go, , b.go")
	if diff := cmp.Diff([]string{"a.go", "b.go"}, m.state.Draft.FilePaths); diff != "" {
		t.Fatalf("draft paths mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.renderStatusBar(200), "2 file(s) attached") {
		t.Error("status bar should show the attachment count")
	}

	m, cmd := enter(t, m, "look at these")
	feed(t, m, cmd)

	calls := mock.SendCalls()
	if len(calls) != 1 {
		t.Fatalf("send calls = %d, want 1", len(calls))
	}
	if diff := cmp.Diff([]string{"a.go", "b.go"}, calls[0].FilePaths); diff != "" {
		t.Errorf("sent paths mismatch (-want +got):\n%s", diff)
	}
}

func TestChat_CodeBlockActions(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: codeReply, ConversationID: "c"},
		SaveFileVal:    "File saved successfully!",
	}
	var copied string
	written := map[string]string{}
	m := newTestModel(t, mock,
		WithClipboard(func(s string) error { copied = s; return nil }),
		WithFileWriter(func(path string, data []byte) error { written[path] = string(data); return nil }),
	)

	m, cmd := enter(t, m, "write code")
	m = feed(t, m, cmd)

	reply := m.state.Messages[1]
	if len(reply.CodeBlocks) != 1 {
		t.Fatalf("code blocks = %d, want 1", len(reply.CodeBlocks))
	}
	code := reply.CodeBlocks[0].Code
	if !strings.Contains(m.viewport.View(), "Code Block 1") {
		t.Error("reply should reference the extracted block")
	}

	m, _ = enter(t, m, "/copy 1")
	if copied != code {
		t.Errorf("copied %q, want %q", copied, code)
	}
	if !strings.Contains(m.status, "Copied") {
		t.Errorf("status = %q", m.status)
	}

	m, _ = enter(t, m, "/write 1 out/main.go")
	if written["out/main.go"] != code {
		t.Errorf("written = %v", written)
	}

	m, cmd = enter(t, m, "/save 1 src/main.go")
	m = feed(t, m, cmd)
	want := models.SaveFileRequest{FilePath: "src/main.go", Code: code, Language: "go"}
	if diff := cmp.Diff(want, mock.LastSave()); diff != "" {
		t.Errorf("save request mismatch (-want +got):\n%s", diff)
	}
	if m.status != "File saved successfully!" {
		t.Errorf("status = %q", m.status)
	}

	m, _ = enter(t, m, "/copy 2")
	if !errors.Is(m.localErr, session.ErrNoCodeBlock) {
		t.Errorf("localErr = %v, want ErrNoCodeBlock", m.localErr)
	}
}

func TestChat_CodeViewer(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: codeReply, ConversationID: "c"},
	}
	var copied string
	m := newTestModel(t, mock, WithClipboard(func(s string) error { copied = s; return nil }))

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	if m.mode != modeChat {
		t.Fatal("viewer should not open without code blocks")
	}

	m, cmd := enter(t, m, "code please")
	m = feed(t, m, cmd)

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	if m.mode != modeCode {
		t.Fatal("ctrl+b should open the code viewer")
	}
	if !strings.Contains(m.View(), "Code Block 1 of 1") {
		t.Error("viewer title missing")
	}

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if !strings.HasPrefix(copied, "l1") {
		t.Errorf("copied %q", copied)
	}

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeChat {
		t.Error("esc should close the viewer")
	}
}

func TestChat_SidebarLoadsSelection(t *testing.T) {
	mock := &api.MockBackendClient{
		ListConversationsVal: []models.ConversationSummary{
			{ID: "aaa111", Title: "Alpha"},
			{ID: "bbb222", Title: "Beta"},
		},
		LoadConversationVal: &models.LoadedConversation{ID: "aaa111", Messages: []models.Message{}},
	}
	m := newTestModel(t, mock)

	m, cmd := key(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.mode != modeSidebar {
		t.Fatal("ctrl+o should open the sidebar")
	}
	m = feed(t, m, cmd)
	if !strings.Contains(m.View(), newConversationLabel) || !strings.Contains(m.View(), "Beta") {
		t.Error("sidebar should list the new entry and conversations")
	}

	m, _ = key(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd = key(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeChat {
		t.Error("selection should close the sidebar")
	}
	m = feed(t, m, cmd)

	if diff := cmp.Diff([]string{"aaa111"}, mock.LoadCalls()); diff != "" {
		t.Errorf("load calls mismatch (-want +got):\n%s", diff)
	}
	if m.state.ConversationID != "aaa111" {
		t.Errorf("ConversationID = %q", m.state.ConversationID)
	}
}

func TestChat_SidebarNewEntry(t *testing.T) {
	mock := &api.MockBackendClient{StartConversationVal: "new-1"}
	m := newTestModel(t, mock)

	m, cmd := key(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m = feed(t, m, cmd)
	m, cmd = key(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = feed(t, m, cmd)

	if mock.StartCalls() != 1 {
		t.Errorf("start calls = %d, want 1", mock.StartCalls())
	}
	if m.state.ConversationID != "new-1" {
		t.Errorf("ConversationID = %q", m.state.ConversationID)
	}
}

func TestChat_InitRestoresPersistedConversation(t *testing.T) {
	mock := &api.MockBackendClient{
		LoadConversationVal: &models.LoadedConversation{
			ID:       "saved-1",
			Messages: []models.Message{{Text: "earlier", Sender: models.SenderUser}},
		},
	}
	kv := history.NewMemoryKV()
	slot := history.NewSlot(kv)
	if err := slot.Save("saved-1"); err != nil {
		t.Fatal(err)
	}
	store := session.New(mock, slot)
	m := NewChatModel(context.Background(), store, mock)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = updated.(Model)

	m = feed(t, m, m.Init())

	if m.state.ConversationID != "saved-1" {
		t.Errorf("ConversationID = %q, want saved-1", m.state.ConversationID)
	}
	if got := models.Texts(m.state.Messages); !cmp.Equal(got, []string{"earlier"}) {
		t.Errorf("messages = %v", got)
	}
}

func TestChat_ResetForgetsConversation(t *testing.T) {
	mock := &api.MockBackendClient{StartConversationVal: "c1"}
	m := newTestModel(t, mock)
	m, cmd := enter(t, m, "/new")
	m = feed(t, m, cmd)

	m, _ = enter(t, m, "/reset")
	if m.state.Bound() {
		t.Error("reset should unbind the session")
	}
}

func TestChat_ViewBeforeSize(t *testing.T) {
	store := session.New(&api.MockBackendClient{}, nil)
	m := NewChatModel(context.Background(), store, &api.MockBackendClient{})
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("view before the first size message should show Initializing")
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"nil", nil, nil},
		{"backend", apierrors.NewBackendError(502, "/chat/", "upstream down"), []string{"upstream down", "HTTP Status: 502", "Endpoint: /chat/"}},
		{"network", apierrors.NewNetworkError("/chat/", errors.New("refused")), []string{"could not reach the backend", "base_url"}},
		{"timeout", apierrors.NewTimeoutError("/chat/", context.DeadlineExceeded), []string{"did not respond in time", "request_timeout"}},
		{"auth", apierrors.NewBackendError(401, "/chat/", "unauthorized"), []string{"import-cookies"}},
		{"plain", errors.New("something"), []string{"something"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			if tt.err == nil && got != "" {
				t.Fatalf("FormatError(nil) = %q", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatError() = %q, missing %q", got, w)
				}
			}
		})
	}
}
