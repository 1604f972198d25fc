package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/history"
)

// NewNewCmd creates the command that starts a fresh conversation
func NewNewCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			spin := newSpinner(deps.Stderr, "Starting conversation")
			spin.start()
			if err := a.store.StartNewConversation(cmd.Context()); err != nil {
				spin.stopWithError()
				return fmt.Errorf("failed to start conversation: %w", err)
			}
			spin.stopOnce()

			fmt.Fprintf(deps.Stdout, "Started conversation %s\n", a.store.Snapshot().ConversationID)
			return nil
		},
	}
}

// NewConversationsCmd creates the conversations command group
func NewConversationsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "history"},
		Short:   "Manage backend conversations",
		Long: `List, inspect, switch and export the conversations stored by the backend.

` + history.ListAliases(),
	}

	cmd.AddCommand(
		newConversationsListCmd(deps),
		newConversationsShowCmd(deps),
		newConversationsUseCmd(deps),
		newConversationsExportCmd(deps),
		newConversationsCurrentCmd(deps),
	)
	return cmd
}

func newConversationsListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			conversations, err := a.client.ListConversations(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if len(conversations) == 0 {
				fmt.Fprintln(deps.Stdout, "No conversations found.")
				return nil
			}

			active := activeID(deps)

			w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "#\tID\tTITLE\t")
			_, _ = fmt.Fprintln(w, "-\t--\t-----\t")
			for i, conv := range conversations {
				title := conv.DisplayTitle()
				if len(title) > 50 {
					title = title[:50] + "..."
				}
				marker := ""
				if conv.ID == active {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, conv.ID, title, marker)
			}
			return w.Flush()
		},
	}
}

func newConversationsShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a conversation without switching to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			info, err := history.NewResolver(a.client).ResolveWithInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			conv, err := a.client.LoadConversation(cmd.Context(), info.ID)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}

			transcript := history.NewTranscript(conv, info.Title)
			printAssistant(deps, transcript.Title, history.ExportToMarkdown(transcript), a.cfg.Markdown)
			return nil
		},
	}
}

func newConversationsUseCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "use <ref>",
		Short: "Make a conversation the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			info, err := history.NewResolver(a.client).ResolveWithInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := a.store.LoadConversation(cmd.Context(), info.ID); err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}

			state := a.store.Snapshot()
			fmt.Fprintf(deps.Stdout, "Switched to %s (%d messages)\n", info.DisplayTitle(), len(state.Messages))
			return nil
		},
	}
}

func newConversationsExportCmd(deps *Dependencies) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a conversation as markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}

			a, err := deps.open()
			if err != nil {
				return err
			}

			info, err := history.NewResolver(a.client).ResolveWithInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			conv, err := a.client.LoadConversation(cmd.Context(), info.ID)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}

			data, err := history.Export(history.NewTranscript(conv, info.Title), exportFormat)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := deps.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			printSuccess(deps.Stderr, "Exported %d messages to %s", len(conv.Messages), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "Export format (markdown, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newConversationsCurrentCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.open()
			if err != nil {
				return err
			}

			if err := a.store.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("failed to restore conversation: %w", err)
			}

			state := a.store.Snapshot()
			if !state.Bound() {
				fmt.Fprintln(deps.Stdout, "No active conversation.")
				return nil
			}

			fmt.Fprintf(deps.Stdout, "ID:       %s\n", state.ConversationID)
			fmt.Fprintf(deps.Stdout, "Messages: %d\n", len(state.Messages))
			if state.Summary != "" {
				fmt.Fprintf(deps.Stdout, "Summary:  %s\n", state.Summary)
			}
			if state.ProjectFolderPath != "" {
				fmt.Fprintf(deps.Stdout, "Project:  %s\n", state.ProjectFolderPath)
			}
			return nil
		},
	}
}

// activeID returns the persisted conversation id, or "" when none is stored
func activeID(deps *Dependencies) string {
	slot, err := deps.NewSlot()
	if err != nil {
		return ""
	}
	id, err := slot.Load()
	if err != nil {
		return ""
	}
	return id
}
