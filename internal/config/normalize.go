package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscogs()
	if err := c.normalizeBackup(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscogs() {
	c.Discogs.Username = strings.TrimSpace(c.Discogs.Username)
	if c.Discogs.Username == "" {
		if value, ok := os.LookupEnv("DISCOGS_USERNAME"); ok {
			c.Discogs.Username = strings.TrimSpace(value)
		}
	}
	c.Discogs.APIToken = strings.TrimSpace(c.Discogs.APIToken)
	if c.Discogs.APIToken == "" {
		if value, ok := os.LookupEnv("DISCOGS_TOKEN"); ok {
			c.Discogs.APIToken = strings.TrimSpace(value)
		}
	}
	c.Discogs.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discogs.BaseURL), "/")
	if c.Discogs.BaseURL == "" {
		c.Discogs.BaseURL = defaultBaseURL
	}
	c.Discogs.UserAgent = strings.TrimSpace(c.Discogs.UserAgent)
	if c.Discogs.UserAgent == "" {
		c.Discogs.UserAgent = defaultUserAgent
	}
	if c.Discogs.RequestTimeout <= 0 {
		c.Discogs.RequestTimeout = defaultRequestTimeout
	}
	if c.Discogs.RequestIntervalMS < 0 {
		c.Discogs.RequestIntervalMS = 0
	}
}

func (c *Config) normalizeBackup() error {
	var err error
	if strings.TrimSpace(c.Backup.Dir) == "" {
		c.Backup.Dir = defaultBackupDir
	}
	if c.Backup.Dir, err = expandPath(c.Backup.Dir); err != nil {
		return fmt.Errorf("backup.dir: %w", err)
	}
	c.Backup.OutputFormats = canonicalize(c.Backup.OutputFormats, KnownFormats())
	if c.Backup.Resources == nil {
		c.Backup.Resources = ResourceOrder()
	}
	c.Backup.Resources = canonicalize(c.Backup.Resources, ResourceOrder())
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath == "" {
		c.Metrics.TextfilePath = filepath.Join(c.Paths.StateDir, defaultMetricsFilename)
	}
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

// canonicalize maps values case-insensitively onto known names and drops
// duplicates. Unknown values are kept verbatim so Validate can report them.
func canonicalize(values []string, known []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		name := trimmed
		for _, candidate := range known {
			if strings.EqualFold(candidate, trimmed) {
				name = candidate
				break
			}
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// NormalizeFormats canonicalizes format names supplied outside the config file,
// such as command-line overrides.
func NormalizeFormats(values []string) []string {
	return canonicalize(values, KnownFormats())
}

// NormalizeResources canonicalizes resource names supplied outside the config
// file.
func NormalizeResources(values []string) []string {
	return canonicalize(values, ResourceOrder())
}
