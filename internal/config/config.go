// Package config handles configuration and cookie management for codechat.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/diogo/codechat/internal/models"
)

// EnvPrefix is the prefix of environment variables that override config keys.
// A double underscore separates nested keys: CODECHAT_MARKDOWN__STYLE.
const EnvPrefix = "CODECHAT_"

// DirEnv overrides the configuration directory
const DirEnv = "CODECHAT_HOME"

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style" koanf:"style"`                           // "dark", "light", "notty", ...
	EnableEmoji      bool   `json:"enable_emoji" koanf:"enable_emoji"`             // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines" koanf:"preserve_newlines"`   // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap" koanf:"table_wrap"`                 // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links" koanf:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// BaseURL is the root of the chat backend
	BaseURL string `json:"base_url" koanf:"base_url"`
	// RequestTimeout bounds a single backend exchange, in seconds.
	RequestTimeout int `json:"request_timeout" koanf:"request_timeout"`
	// Verbose enables debug logging
	Verbose         bool           `json:"verbose" koanf:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard" koanf:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty" koanf:"tui_theme"`       // TUI color theme
	DownloadDir     string         `json:"download_dir,omitempty" koanf:"download_dir"` // Directory for locally saved code blocks
	Markdown        MarkdownConfig `json:"markdown,omitempty" koanf:"markdown"`
}

// Timeout returns RequestTimeout as a duration
func (c Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return time.Duration(DefaultRequestTimeout) * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// DefaultRequestTimeout is the request timeout in seconds
const DefaultRequestTimeout = 300

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	dir, _ := GetConfigDir()
	return Config{
		BaseURL:         models.DefaultBaseURL,
		RequestTimeout:  DefaultRequestTimeout,
		Verbose:         false,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		DownloadDir:     filepath.Join(dir, "code"),
		Markdown:        DefaultMarkdownConfig(),
	}
}

// defaultsMap flattens DefaultConfig into koanf keys
func defaultsMap() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"base_url":                    d.BaseURL,
		"request_timeout":             d.RequestTimeout,
		"verbose":                     d.Verbose,
		"copy_to_clipboard":           d.CopyToClipboard,
		"tui_theme":                   d.TUITheme,
		"download_dir":                d.DownloadDir,
		"markdown.style":              d.Markdown.Style,
		"markdown.enable_emoji":       d.Markdown.EnableEmoji,
		"markdown.preserve_newlines":  d.Markdown.PreserveNewLines,
		"markdown.table_wrap":         d.Markdown.TableWrap,
		"markdown.inline_table_links": d.Markdown.InlineTableLinks,
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".codechat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// Use 0o700 for sensitive directories (contains cookies and config)
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetCookiesPath returns the path to the cookies file
func GetCookiesPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// GetStatePath returns the path of the client state file
func GetStatePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "state.json"), nil
}

// GetLogPath returns the path of the TUI log file
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "codechat.log"), nil
}

// GetDownloadDir returns the download directory from config, creating it if necessary
func GetDownloadDir(cfg Config) (string, error) {
	dir := cfg.DownloadDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "code")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration from defaults, the config file and the
// environment, in that order of precedence.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), kjson.Parser()); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return DefaultConfig(), err
	}

	return cfg, nil
}

// envKey maps CODECHAT_MARKDOWN__STYLE to markdown.style
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "HOME" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the values that the client cannot run without
func Validate(cfg Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: expected an absolute http(s) URL", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: unsupported scheme %s", cfg.BaseURL, u.Scheme)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Keys returns every settable config key, sorted
func Keys() []string {
	keys := make([]string, 0, len(defaultsMap()))
	for k := range defaultsMap() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a config key
func Get(cfg Config, key string) (string, error) {
	switch key {
	case "base_url":
		return cfg.BaseURL, nil
	case "request_timeout":
		return strconv.Itoa(cfg.RequestTimeout), nil
	case "verbose":
		return strconv.FormatBool(cfg.Verbose), nil
	case "copy_to_clipboard":
		return strconv.FormatBool(cfg.CopyToClipboard), nil
	case "tui_theme":
		return cfg.TUITheme, nil
	case "download_dir":
		return cfg.DownloadDir, nil
	case "markdown.style":
		return cfg.Markdown.Style, nil
	case "markdown.enable_emoji":
		return strconv.FormatBool(cfg.Markdown.EnableEmoji), nil
	case "markdown.preserve_newlines":
		return strconv.FormatBool(cfg.Markdown.PreserveNewLines), nil
	case "markdown.table_wrap":
		return strconv.FormatBool(cfg.Markdown.TableWrap), nil
	case "markdown.inline_table_links":
		return strconv.FormatBool(cfg.Markdown.InlineTableLinks), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set parses value and assigns it to key
func Set(cfg *Config, key, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		*dst = b
		return nil
	}

	switch key {
	case "base_url":
		next := *cfg
		next.BaseURL = strings.TrimRight(value, "/")
		if err := Validate(next); err != nil {
			return err
		}
		cfg.BaseURL = next.BaseURL
		return nil
	case "request_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("request_timeout expects a non-negative number of seconds, got %q", value)
		}
		cfg.RequestTimeout = n
		return nil
	case "verbose":
		return parseBool(&cfg.Verbose)
	case "copy_to_clipboard":
		return parseBool(&cfg.CopyToClipboard)
	case "tui_theme":
		cfg.TUITheme = value
		return nil
	case "download_dir":
		cfg.DownloadDir = value
		return nil
	case "markdown.style":
		cfg.Markdown.Style = value
		return nil
	case "markdown.enable_emoji":
		return parseBool(&cfg.Markdown.EnableEmoji)
	case "markdown.preserve_newlines":
		return parseBool(&cfg.Markdown.PreserveNewLines)
	case "markdown.table_wrap":
		return parseBool(&cfg.Markdown.TableWrap)
	case "markdown.inline_table_links":
		return parseBool(&cfg.Markdown.InlineTableLinks)
	}
	return fmt.Errorf("unknown config key: %s", key)
}
