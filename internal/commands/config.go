package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/config"
	"github.com/diogo/codechat/internal/render"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change codechat settings stored in config.json.

Environment variables prefixed with CODECHAT_ override the file, with a
double underscore between nested keys (CODECHAT_MARKDOWN__STYLE=light).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(deps)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(deps)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				value, err := config.Get(cfg, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(deps.Stdout, value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(deps, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the settable keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, k := range config.Keys() {
					fmt.Fprintln(deps.Stdout, k)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "themes",
			Short: "List markdown styles and TUI themes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigThemes(deps)
			},
		},
	)
	return cmd
}

func runConfigShow(deps *Dependencies) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, _ := config.GetConfigPath()
	fmt.Fprintln(deps.Stdout, headerStyle.Render("Configuration")+" "+dimStyle.Render(path))

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range config.Keys() {
		value, err := config.Get(cfg, k)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", k, value)
	}
	return w.Flush()
}

func runConfigSet(deps *Dependencies, key, value string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if key == "tui_theme" {
		if _, ok := render.GetTUIThemeByName(value); !ok {
			return fmt.Errorf("unknown TUI theme %q (available: %v)", value, render.TUIThemeNames())
		}
	}

	if err := config.Set(&cfg, key, value); err != nil {
		return err
	}
	if err := config.SaveConfig(cfg); err != nil {
		return err
	}

	printSuccess(deps.Stdout, "%s = %s", key, value)
	return nil
}

func runConfigThemes(deps *Dependencies) error {
	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MARKDOWN STYLE\tDESCRIPTION")
	for _, t := range render.AvailableThemes() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
	}
	_, _ = fmt.Fprintln(w, "\t")
	_, _ = fmt.Fprintln(w, "TUI THEME\tDESCRIPTION")
	for _, name := range render.TUIThemeNames() {
		theme, _ := render.GetTUIThemeByName(name)
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, theme.Description)
	}
	return w.Flush()
}
