package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Output format names accepted in backup.output_formats.
const (
	FormatRawJSON = "rawJson"
	FormatJSON    = "json"
	FormatCSV     = "csv"
)

// Resource kinds accepted in backup.resources, in export order.
const (
	ResourceProfile       = "profile"
	ResourceCollection    = "collection"
	ResourceWantlist      = "wantlist"
	ResourceContributions = "contributions"
	ResourceLists         = "lists"
)

// KnownFormats lists every supported output format.
func KnownFormats() []string {
	return []string{FormatRawJSON, FormatJSON, FormatCSV}
}

// ResourceOrder lists every resource kind in the fixed export order.
func ResourceOrder() []string {
	return []string{ResourceProfile, ResourceCollection, ResourceWantlist, ResourceContributions, ResourceLists}
}

// Discogs contains credentials and transport settings for the Discogs API.
type Discogs struct {
	Username          string `toml:"username" json:"username"`
	APIToken          string `toml:"api_token" json:"api_token"`
	BaseURL           string `toml:"base_url" json:"base_url"`
	UserAgent         string `toml:"user_agent" json:"user_agent"`
	RequestTimeout    int    `toml:"request_timeout" json:"request_timeout"`
	RequestIntervalMS int    `toml:"request_interval_ms" json:"request_interval_ms"`
}

// Backup contains what to export and where.
type Backup struct {
	Dir                string   `toml:"dir" json:"dir"`
	OutputFormats      []string `toml:"output_formats" json:"output_formats"`
	RemoveMissingLists bool     `toml:"remove_missing_lists" json:"remove_missing_lists"`
	Resources          []string `toml:"resources" json:"resources"`
}

// Paths contains directories for local state and logs.
type Paths struct {
	StateDir string `toml:"state_dir" json:"state_dir"`
	LogDir   string `toml:"log_dir" json:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" json:"format"`
	Level  string `toml:"level" json:"level"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Enabled      bool   `toml:"enabled" json:"enabled"`
	TextfilePath string `toml:"textfile_path" json:"textfile_path"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

// Notifications contains ntfy settings for end-of-backup alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic" json:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" json:"request_timeout"`
	// OnSuccess also notifies when every resource succeeded.
	OnSuccess bool `toml:"on_success" json:"on_success"`
}

// Config encapsulates all configuration values for crate.
//
// Configuration sections by subsystem:
//   - Discogs: account, token, and HTTP transport settings
//   - Backup: backup root, output formats, resources, list deletion
//   - Paths: state and log directories
//   - Logging: log format and level
//   - Metrics: Prometheus textfile output
//   - History: sqlite run history
//   - Notifications: ntfy alerts after a backup
type Config struct {
	Discogs Discogs `toml:"discogs" json:"discogs"`
	Backup  Backup  `toml:"backup" json:"backup"`
	Paths   Paths   `toml:"paths" json:"paths"`
	Logging Logging `toml:"logging" json:"logging"`
	Metrics Metrics `toml:"metrics" json:"metrics"`
	History History `toml:"history" json:"history"`

	Notifications Notifications `toml:"notifications" json:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("crate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log, and backup directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Backup.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HasFormat reports whether the named output format is selected.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Backup.OutputFormats, format)
}

// HasResource reports whether the named resource kind is selected.
func (c *Config) HasResource(resource string) bool {
	return slices.Contains(c.Backup.Resources, resource)
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// Redacted returns a copy safe for display, with the API token masked.
func (c *Config) Redacted() Config {
	cp := *c
	cp.Backup.OutputFormats = slices.Clone(c.Backup.OutputFormats)
	cp.Backup.Resources = slices.Clone(c.Backup.Resources)
	if cp.Discogs.APIToken != "" {
		cp.Discogs.APIToken = "********"
	}
	return cp
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleAccount pre-fills the Discogs credentials of a sample config.
type SampleAccount struct {
	Username string
	APIToken string
}

// CreateSample writes a sample configuration file to the specified location,
// filling in whichever account fields are set.
func CreateSample(path string, account SampleAccount) error {
	content, err := renderSample(account)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func renderSample(account SampleAccount) (string, error) {
	content := sampleConfig
	for _, field := range []struct{ key, value string }{
		{"username", strings.TrimSpace(account.Username)},
		{"api_token", strings.TrimSpace(account.APIToken)},
	} {
		if field.value == "" {
			continue
		}
		if strings.IndexFunc(field.value, unicode.IsControl) >= 0 || strings.ContainsAny(field.value, `"\`) {
			return "", configError("discogs.%s contains characters that cannot be written to the sample", field.key)
		}
		content = strings.Replace(content, field.key+` = ""`, fmt.Sprintf("%s = %q", field.key, field.value), 1)
	}
	return content, nil
}
