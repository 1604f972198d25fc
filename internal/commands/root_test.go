package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/diogo/codechat/internal/api"
	"github.com/diogo/codechat/internal/config"
	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/models"
)

func TestRoot_Version(t *testing.T) {
	env := newTestEnv(t, &api.MockBackendClient{})

	if err := env.run("-v"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "codechat "+Version) {
		t.Errorf("stdout = %q, want version line", env.stdout.String())
	}
}

func TestRoot_NoInputShowsHelp(t *testing.T) {
	mock := &api.MockBackendClient{}
	env := newTestEnv(t, mock)

	if err := env.run(); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Usage:") {
		t.Errorf("expected help output, got %q", env.stdout.String())
	}
	if len(mock.SendCalls()) != 0 {
		t.Error("nothing should be sent without a prompt")
	}
}

func TestRoot_SendsPrompt(t *testing.T) {
	reply := "Here you go:\n\n" + fenced("go", 6) + "\n\nDone."
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: reply, ConversationID: "c1"},
	}
	env := newTestEnv(t, mock)

	if err := env.run("hello", "--attach", "a.go, b.go"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	calls := mock.SendCalls()
	if len(calls) != 1 {
		t.Fatalf("SendMessage called %d times, want 1", len(calls))
	}
	want := api.SendMessageCall{
		History:        []string{"hello"},
		FilePaths:      []string{"a.go", "b.go"},
		ConversationID: "",
	}
	if diff := cmp.Diff(want, calls[0]); diff != "" {
		t.Errorf("SendMessage call mismatch (-want +got):\n%s", diff)
	}

	out := env.stdout.String()
	for _, s := range []string{"Here you go:", "Done.", "**Code Block 1** _(go)_", "```go"} {
		if !strings.Contains(out, s) {
			t.Errorf("stdout missing %q:\n%s", s, out)
		}
	}
	if got := env.active(t); got != "c1" {
		t.Errorf("persisted id = %q, want c1", got)
	}
}

func TestRoot_RestoresConversation(t *testing.T) {
	mock := &api.MockBackendClient{
		LoadConversationVal: &models.LoadedConversation{
			ID: "c9",
			Messages: []models.Message{
				{Text: "earlier", Sender: models.SenderUser},
				{Text: "answer", Sender: models.SenderAssistant},
			},
		},
		SendMessageVal: &models.SendResult{AIResponse: "ok", ConversationID: "c9"},
	}
	env := newTestEnv(t, mock)
	env.setActive(t, "c9")

	if err := env.run("next"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if diff := cmp.Diff([]string{"c9"}, mock.LoadCalls()); diff != "" {
		t.Errorf("LoadConversation calls (-want +got):\n%s", diff)
	}
	calls := mock.SendCalls()
	if len(calls) != 1 {
		t.Fatalf("SendMessage called %d times, want 1", len(calls))
	}
	if diff := cmp.Diff([]string{"earlier", "answer", "next"}, calls[0].History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if calls[0].ConversationID != "c9" {
		t.Errorf("ConversationID = %q, want c9", calls[0].ConversationID)
	}
}

func TestRoot_NewFlag(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "fresh", ConversationID: "c2"},
	}
	env := newTestEnv(t, mock)
	env.setActive(t, "c9")

	if err := env.run("--new", "hi"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if len(mock.LoadCalls()) != 0 {
		t.Errorf("--new should not restore, got loads %v", mock.LoadCalls())
	}
	if got := mock.SendCalls()[0].ConversationID; got != "" {
		t.Errorf("ConversationID = %q, want unbound", got)
	}
	if got := env.active(t); got != "c2" {
		t.Errorf("persisted id = %q, want c2", got)
	}
}

func TestRoot_RestoreFailure(t *testing.T) {
	mock := &api.MockBackendClient{
		LoadConversationErr: apierrors.NewBackendError(404, models.EndpointLoadConversation, "not found"),
	}
	env := newTestEnv(t, mock)
	env.setActive(t, "gone")

	err := env.run("hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "--new") {
		t.Errorf("error should point at --new, got %v", err)
	}
	if len(mock.SendCalls()) != 0 {
		t.Error("nothing should be sent after a failed restore")
	}
}

func TestRoot_InputSources(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  func(dir string) []string
		want  string
	}{
		{
			name: "file",
			args: func(dir string) []string {
				path := filepath.Join(dir, "prompt.md")
				_ = os.WriteFile(path, []byte("from file"), 0o644)
				return []string{"-f", path}
			},
			want: "from file",
		},
		{
			name:  "stdin",
			stdin: "from stdin",
			args:  func(dir string) []string { return nil },
			want:  "from stdin",
		},
		{
			name:  "argument wins over stdin",
			stdin: "ignored",
			args:  func(dir string) []string { return []string{"from arg"} },
			want:  "from arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &api.MockBackendClient{
				SendMessageVal: &models.SendResult{AIResponse: "ok", ConversationID: "c1"},
			}
			env := newTestEnv(t, mock)
			env.deps.Stdin = strings.NewReader(tt.stdin)

			if err := env.run(tt.args(t.TempDir())...); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			calls := mock.SendCalls()
			if len(calls) != 1 {
				t.Fatalf("SendMessage called %d times, want 1", len(calls))
			}
			if calls[0].History[0] != tt.want {
				t.Errorf("sent %q, want %q", calls[0].History[0], tt.want)
			}
		})
	}
}

func TestRoot_OutputFile(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "saved reply", ConversationID: "c1"},
	}
	env := newTestEnv(t, mock)
	out := filepath.Join(t.TempDir(), "reply.md")

	if err := env.run("hi", "-o", out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "saved reply\n" {
		t.Errorf("file content = %q", data)
	}
	if env.stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", env.stdout.String())
	}
}

func TestRoot_CopyToClipboard(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "copied", ConversationID: "c1"},
	}
	env := newTestEnv(t, mock)

	cfg := config.DefaultConfig()
	cfg.CopyToClipboard = true
	if err := config.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	if err := env.run("hi"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"copied\n"}, env.clipboard); diff != "" {
		t.Errorf("clipboard (-want +got):\n%s", diff)
	}
}

func TestRoot_SendFailure(t *testing.T) {
	mock := &api.MockBackendClient{
		SendMessageErr: apierrors.NewBackendError(500, models.EndpointSendMessage, "model overloaded"),
	}
	env := newTestEnv(t, mock)

	err := env.run("hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apierrors.ErrBackend) {
		t.Errorf("error should wrap ErrBackend, got %v", err)
	}
	if got := env.active(t); got != "" {
		t.Errorf("nothing should be persisted, got %q", got)
	}
}

func TestRoot_BaseURLFlag(t *testing.T) {
	var got config.Config
	env := newTestEnv(t, &api.MockBackendClient{
		SendMessageVal: &models.SendResult{AIResponse: "ok"},
	})
	env.deps.NewClient = func(cfg config.Config) (api.BackendClientInterface, error) {
		got = cfg
		return env.mock, nil
	}

	if err := env.run("--base-url", "http://backend.test:9000", "hi"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got.BaseURL != "http://backend.test:9000" {
		t.Errorf("BaseURL = %q", got.BaseURL)
	}

	if err := env.run("--base-url", "ftp://nope", "hi"); err == nil {
		t.Error("expected an invalid base URL to be rejected")
	}
}

func TestReadPrompt_Empty(t *testing.T) {
	fileFlag = ""
	_, ok, err := readPrompt(strings.NewReader("   \n"), nil)
	if err != nil {
		t.Fatalf("readPrompt() error = %v", err)
	}
	if ok {
		t.Error("blank stdin should not count as a prompt")
	}
}
