package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/models"
)

// NewAnalyzeCmd creates the command that asks about the active project
func NewAnalyzeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <question>",
		Short: "Ask a question about the project of the active conversation",
		Long: `Ask a question about the project bound to the active conversation.
The answer is not added to the conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := argsOrStdin(deps, args)
			if err != nil {
				return err
			}

			a, err := deps.open()
			if err != nil {
				return err
			}
			if err := a.store.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("failed to restore conversation: %w", err)
			}

			spin := newSpinner(deps.Stderr, "Analyzing project")
			spin.start()
			answer := a.store.AnalyzeProject(cmd.Context(), question)
			spin.stopOnce()

			printAssistant(deps, "✦ Analysis", answer, a.cfg.Markdown)
			return nil
		},
	}
}

// NewPathsCmd creates the command that lists files related to a feature
func NewPathsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "paths <feature request>",
		Short: "List project files relevant to a feature request",
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := argsOrStdin(deps, args)
			if err != nil {
				return err
			}

			a, err := deps.open()
			if err != nil {
				return err
			}
			if err := a.store.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("failed to restore conversation: %w", err)
			}

			spin := newSpinner(deps.Stderr, "Finding relevant files")
			spin.start()
			answer := a.store.FetchFilePaths(cmd.Context(), request)
			spin.stopOnce()

			printAssistant(deps, "✦ Relevant files", answer, a.cfg.Markdown)
			return nil
		},
	}
}

// NewRefineCmd creates the structured prompt refinement command
func NewRefineCmd(deps *Dependencies) *cobra.Command {
	var tmpl models.PromptTemplate

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Turn a structured description into a refined prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			spin := newSpinner(deps.Stderr, "Refining prompt")
			spin.start()
			refined, err := a.client.RefinePrompt(cmd.Context(), tmpl)
			if err != nil {
				spin.stopWithError()
				return fmt.Errorf("refine failed: %w", err)
			}
			spin.stopWithSuccess("Prompt refined")

			return printReply(deps, a.cfg.CopyToClipboard, a.cfg.Markdown, refined)
		},
	}

	cmd.Flags().StringVar(&tmpl.Purpose, "purpose", "", "What the code is for")
	cmd.Flags().StringVar(&tmpl.Functionality, "functionality", "", "What it must do")
	cmd.Flags().StringVar(&tmpl.Data, "data", "", "Data it works with")
	cmd.Flags().StringVar(&tmpl.Design, "design", "", "Design constraints")
	cmd.Flags().StringVar(&tmpl.Integration, "integration", "", "Systems it integrates with")
	_ = cmd.MarkFlagRequired("purpose")
	_ = cmd.MarkFlagRequired("functionality")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// NewCheckCmd creates the code check command
func NewCheckCmd(deps *Dependencies) *cobra.Command {
	var (
		prompt   string
		code     string
		codeFile string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the backend to review code against a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := codeInput(deps, code, codeFile)
			if err != nil {
				return err
			}

			a, err := deps.open()
			if err != nil {
				return err
			}

			spin := newSpinner(deps.Stderr, "Checking code")
			spin.start()
			review, err := a.client.CheckCode(cmd.Context(), prompt, source)
			if err != nil {
				spin.stopWithError()
				return fmt.Errorf("check failed: %w", err)
			}
			spin.stopWithSuccess("Checked")

			printAssistant(deps, "✦ Review", review, a.cfg.Markdown)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "What the code is supposed to do")
	cmd.Flags().StringVar(&code, "code", "", "Code to check")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read the code from a file")
	_ = cmd.MarkFlagRequired("prompt")
	cmd.MarkFlagsMutuallyExclusive("code", "code-file")
	return cmd
}

// NewSaveFileCmd creates the command that writes code on the backend host
func NewSaveFileCmd(deps *Dependencies) *cobra.Command {
	var (
		code     string
		codeFile string
		language string
	)

	cmd := &cobra.Command{
		Use:   "save-file <path>",
		Short: "Save code to a path on the backend host",
		Long: `Save code to a path on the backend host. The code comes from --code,
--code-file or stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := codeInput(deps, code, codeFile)
			if err != nil {
				return err
			}

			a, err := deps.open()
			if err != nil {
				return err
			}

			msg, err := a.client.SaveFile(cmd.Context(), models.SaveFileRequest{
				FilePath: args[0],
				Code:     source,
				Language: language,
			})
			if err != nil {
				return fmt.Errorf("save failed: %w", err)
			}
			if msg == "" {
				msg = "Saved " + args[0]
			}
			printSuccess(deps.Stdout, "%s", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Code to save")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read the code from a file")
	cmd.Flags().StringVar(&language, "language", "", "Language of the code")
	cmd.MarkFlagsMutuallyExclusive("code", "code-file")
	return cmd
}

// argsOrStdin joins args, or reads piped stdin when there are none
func argsOrStdin(deps *Dependencies, args []string) (string, error) {
	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		return text, nil
	}
	if hasPipedInput(deps.Stdin) {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
	}
	return "", errors.New("no input given")
}

// codeInput returns code from the flag, the file or piped stdin
func codeInput(deps *Dependencies, code, codeFile string) (string, error) {
	switch {
	case code != "":
		return code, nil
	case codeFile != "":
		data, err := os.ReadFile(codeFile)
		if err != nil {
			return "", fmt.Errorf("failed to read code file: %w", err)
		}
		return string(data), nil
	case hasPipedInput(deps.Stdin):
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) != "" {
			return string(data), nil
		}
	}
	return "", errors.New("no code given (use --code, --code-file or stdin)")
}
