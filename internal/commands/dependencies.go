package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"

	"github.com/diogo/codechat/internal/api"
	"github.com/diogo/codechat/internal/browser"
	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/history"
	"github.com/diogo/codechat/internal/logging"
	"github.com/diogo/codechat/internal/session"
	"github.com/diogo/codechat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, store *session.Store, backend tui.Backend, opts ...tui.Option) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient builds the backend client from the loaded configuration.
	NewClient func(cfg config.Config) (api.BackendClientInterface, error)

	// NewSlot opens the persisted conversation id.
	NewSlot func() (session.IDSlot, error)

	// TUI is the terminal user interface.
	TUI TUIInterface

	// Browser extracts backend cookies from installed browsers.
	Browser browser.Extractor

	// Clipboard copies text to the system clipboard.
	Clipboard func(string) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, store *session.Store, backend tui.Backend, opts ...tui.Option) error {
	return tui.RunChat(ctx, store, backend, opts...)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient: defaultClient,
		NewSlot:   defaultSlot,
		TUI:       &DefaultTUI{},
		Browser:   browser.KookyExtractor{},
		Clipboard: clipboard.WriteAll,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// defaultClient creates the HTTP client with the saved cookies, if any
func defaultClient(cfg config.Config) (api.BackendClientInterface, error) {
	cookies, err := config.LoadCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	return api.NewClient(cfg, api.WithCookies(cookies))
}

// defaultSlot opens the state file in the config directory
func defaultSlot() (session.IDSlot, error) {
	if _, err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}
	path, err := config.GetStatePath()
	if err != nil {
		return nil, err
	}
	return history.NewSlot(history.NewFileKV(path)), nil
}

// app is what a command needs once configuration is loaded
type app struct {
	cfg    config.Config
	client api.BackendClientInterface
	store  *session.Store
}

// open loads the configuration and wires the client and the session Store
func (d *Dependencies) open() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Verbose && !verboseFlag {
		logging.Setup(d.Stderr, true)
	}

	client, err := d.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	slot, err := d.NewSlot()
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	return &app{
		cfg:    cfg,
		client: client,
		store:  session.New(client, slot),
	}, nil
}

// loadConfig loads the configuration and applies command-line overrides
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
		if err := config.Validate(cfg); err != nil {
			return cfg, err
		}
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	return cfg, nil
}
