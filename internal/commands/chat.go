package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/logging"
	"github.com/diogo/codechat/internal/render"
	"github.com/diogo/codechat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

The last active conversation is restored on start. Type /help inside the
chat for the list of commands. Press Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies) error {
	a, err := deps.open()
	if err != nil {
		return err
	}

	// The full-screen UI owns the terminal, so logs go to a file
	if path, err := config.GetLogPath(); err == nil {
		closer, err := logging.SetupFile(path, a.cfg.Verbose)
		if err != nil {
			printWarning(deps.Stderr, "Logging disabled: %v", err)
			logging.Discard()
		} else {
			defer func() {
				logging.Discard()
				_ = closer.Close()
			}()
		}
	}

	if a.cfg.TUITheme != "" && !render.SetTUITheme(a.cfg.TUITheme) {
		log.Warn().Str("theme", a.cfg.TUITheme).Msg("unknown TUI theme, using default")
	}
	tui.UpdateTheme()

	downloadDir, err := config.GetDownloadDir(a.cfg)
	if err != nil {
		return err
	}

	opts := []tui.Option{
		tui.WithRenderOptions(render.OptionsFromConfig(a.cfg.Markdown, 0)),
		tui.WithClipboard(deps.Clipboard),
		tui.WithFileWriter(localWriter(downloadDir)),
	}

	log.Info().Str("base_url", a.client.BaseURL()).Msg("starting chat")
	return deps.TUI.RunChat(cmd.Context(), a.store, a.client, opts...)
}

// localWriter writes code blocks to disk. Relative paths land in dir.
func localWriter(dir string) func(path string, data []byte) error {
	return func(path string, data []byte) error {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Debug().Str("path", path).Int("bytes", len(data)).Msg("code block written")
		return nil
	}
}
