package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/codechat/internal/browser"
	"github.com/diogo/codechat/internal/config"
)

// NewImportCookiesCmd creates the cookie import command
func NewImportCookiesCmd(deps *Dependencies) *cobra.Command {
	var (
		browserFlag string
		namesFlag   string
	)

	cmd := &cobra.Command{
		Use:   "import-cookies [path]",
		Short: "Import backend session cookies from a file or a browser",
		Long: `Import the cookies sent with every backend request.

With a path, the file should contain either:
1. A list of objects: [{"name": "sessionid", "value": "..."}]
2. A simple dictionary: {"sessionid": "..."}

Without a path, cookies for the backend host are read from an installed
browser (chrome, chromium, firefox, edge, opera or auto).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runImportCookiesFile(deps, args[0])
			}
			return runImportCookiesBrowser(cmd, deps, browserFlag, namesFlag)
		},
	}

	cmd.Flags().StringVar(&browserFlag, "browser", "auto", "Browser to read cookies from")
	cmd.Flags().StringVar(&namesFlag, "names", "", "Comma-separated cookie names to keep (default: all)")
	return cmd
}

func runImportCookiesFile(deps *Dependencies, sourcePath string) error {
	cookies, err := config.ImportCookies(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()
	printSuccess(deps.Stdout, "Imported %d cookies to %s", cookies.Len(), cookiesPath)
	return nil
}

func runImportCookiesBrowser(cmd *cobra.Command, deps *Dependencies, browserName, names string) error {
	target, err := browser.ParseBrowser(browserName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var wanted []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			wanted = append(wanted, n)
		}
	}

	spin := newSpinner(deps.Stderr, "Reading browser cookies")
	spin.start()
	result, err := deps.Browser.ExtractCookies(cmd.Context(), target, cfg.BaseURL, wanted)
	if err != nil {
		spin.stopWithError()
		return fmt.Errorf("failed to extract cookies: %w", err)
	}
	spin.stopOnce()

	if _, err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.SaveCookies(result.Cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()
	printSuccess(deps.Stdout, "Imported %d cookies from %s to %s", result.Cookies.Len(), result.BrowserName, cookiesPath)
	return nil
}
