// Package commands provides CLI commands for codechat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/logging"
	"github.com/diogo/codechat/internal/session"
)

var (
	// Global flags
	verboseFlag bool
	baseURLFlag string

	// Root command flags
	outputFlag string
	fileFlag   string
	attachFlag string
	newFlag    bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// NewRootCmd builds the command tree around deps
func NewRootCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codechat [prompt]",
		Short: "Terminal client for a code-assistant chat backend",
		Long: `codechat talks to a code-assistant chat backend. It keeps one active
conversation, remembers it between runs and lifts long code blocks out of
replies so they can be viewed, copied or saved.

Examples:
  codechat chat                         Start interactive chat
  codechat "How do I parse JSON?"       Send a single message
  codechat -f prompt.md                 Read the message from a file
  cat prompt.md | codechat              Read the message from stdin
  codechat "Explain" --attach main.go   Attach project files
  codechat conversations list           List stored conversations
  codechat config show                  Show settings`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(deps.Stderr, verboseFlag)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "codechat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps.Stdin, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runQuery(cmd.Context(), deps, prompt)
		},
	}

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Backend URL (overrides base_url)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	cmd.Flags().StringVar(&attachFlag, "attach", "", "Comma-separated project file paths to attach")
	cmd.Flags().BoolVar(&newFlag, "new", false, "Forget the active conversation before sending")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(
		NewChatCmd(deps),
		NewNewCmd(deps),
		NewConversationsCmd(deps),
		NewAnalyzeCmd(deps),
		NewPathsCmd(deps),
		NewRefineCmd(deps),
		NewCheckCmd(deps),
		NewSaveFileCmd(deps),
		NewImportCookiesCmd(deps),
		NewConfigCmd(deps),
	)
	return cmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		stop()
		os.Exit(1)
	}
}

// readPrompt picks the prompt from --file, the argument or piped stdin, in
// that order. ok is false when none was given.
func readPrompt(stdin io.Reader, args []string) (string, bool, error) {
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	if hasPipedInput(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) != "" {
			return string(data), true, nil
		}
	}
	return "", false, nil
}

// hasPipedInput reports whether stdin carries data rather than a terminal
func hasPipedInput(stdin io.Reader) bool {
	if stdin == nil {
		return false
	}
	f, ok := stdin.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// runQuery sends one message in the active conversation and prints the reply
func runQuery(ctx context.Context, deps *Dependencies, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	a, err := deps.open()
	if err != nil {
		return err
	}
	store := a.store

	if newFlag {
		store.Reset()
	} else {
		spin := newSpinner(deps.Stderr, "Restoring conversation")
		spin.start()
		if err := store.Initialize(ctx); err != nil {
			spin.stopWithError()
			return fmt.Errorf("failed to restore conversation (use --new to start over): %w", err)
		}
		spin.stopOnce()
	}

	if attachFlag != "" {
		store.SetDraftFilePaths(session.ParseFilePaths(attachFlag))
	}
	store.SetDraftText(prompt)

	done, err := store.SubmitMessage(ctx)
	if err != nil {
		return err
	}

	spin := newSpinner(deps.Stderr, "Waiting for the assistant")
	spin.start()
	if err := <-done; err != nil {
		spin.stopWithError()
		return fmt.Errorf("send failed: %w", err)
	}
	spin.stopWithSuccess("Done")

	state := store.Snapshot()
	if len(state.Messages) == 0 {
		return errors.New("no reply received")
	}
	reply := state.Messages[len(state.Messages)-1]
	log.Debug().
		Str("conversation_id", state.ConversationID).
		Int("code_blocks", len(reply.CodeBlocks)).
		Msg("reply received")

	text := replyMarkdown(reply.Text, reply.CodeBlocks)
	return printReply(deps, a.cfg.CopyToClipboard, a.cfg.Markdown, text)
}
