package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/diogo/codechat/internal/api"
	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/history"
	"github.com/diogo/codechat/internal/session"
	"github.com/diogo/codechat/internal/tui"
)

// fakeTUI records the arguments of RunChat
type fakeTUI struct {
	called  bool
	store   *session.Store
	backend tui.Backend
	opts    []tui.Option
	err     error
}

func (f *fakeTUI) RunChat(ctx context.Context, store *session.Store, backend tui.Backend, opts ...tui.Option) error {
	f.called = true
	f.store = store
	f.backend = backend
	f.opts = opts
	return f.err
}

type testEnv struct {
	deps      *Dependencies
	mock      *api.MockBackendClient
	slot      *history.Slot
	tui       *fakeTUI
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	clipboard []string
}

// newTestEnv isolates the config directory and wires deps to the mock
func newTestEnv(t *testing.T, mock *api.MockBackendClient) *testEnv {
	t.Helper()
	t.Setenv(config.DirEnv, t.TempDir())

	env := &testEnv{
		mock:   mock,
		slot:   history.NewSlot(history.NewMemoryKV()),
		tui:    &fakeTUI{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	env.deps = &Dependencies{
		NewClient: func(cfg config.Config) (api.BackendClientInterface, error) {
			return mock, nil
		},
		NewSlot: func() (session.IDSlot, error) {
			return env.slot, nil
		},
		TUI: env.tui,
		Clipboard: func(s string) error {
			env.clipboard = append(env.clipboard, s)
			return nil
		},
		Stdin:  strings.NewReader(""),
		Stdout: env.stdout,
		Stderr: env.stderr,
	}
	return env
}

// run executes the command tree with args
func (e *testEnv) run(args ...string) error {
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func (e *testEnv) setActive(t *testing.T, id string) {
	t.Helper()
	if err := e.slot.Save(id); err != nil {
		t.Fatalf("Save(%q) failed: %v", id, err)
	}
}

func (e *testEnv) active(t *testing.T) string {
	t.Helper()
	id, err := e.slot.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return id
}

// fenced returns a fenced code block with n body lines
func fenced(lang string, n int) string {
	var sb strings.Builder
	sb.WriteString("```" + lang + "\n")
	for i := 0; i < n; i++ {
		sb.WriteString("line\n")
	}
	sb.WriteString("```")
	return sb.String()
}
