package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"crate/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDiscogs(); err != nil {
		return err
	}
	if err := ValidateFormats(c.Backup.OutputFormats); err != nil {
		return err
	}
	if err := ValidateResources(c.Backup.Resources); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

// ValidateFormats rejects an empty format set and unknown format names.
func ValidateFormats(formats []string) error {
	if len(formats) == 0 {
		return configError("backup.output_formats must include at least one of %s", strings.Join(KnownFormats(), ", "))
	}
	for _, format := range formats {
		if !slices.Contains(KnownFormats(), format) {
			return configError("backup.output_formats: unsupported format %q", format)
		}
	}
	return nil
}

// RequireCredentials reports a configuration error when the account or token is missing.
func (c *Config) RequireCredentials() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	if c.Discogs.Username == "" {
		return configError("discogs.username is required. Set DISCOGS_USERNAME env var or edit %s (create with 'crate config init')", defaultPath)
	}
	if c.Discogs.APIToken == "" {
		return configError("discogs.api_token is required. Set DISCOGS_TOKEN env var or edit %s (create with 'crate config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateDiscogs() error {
	if !strings.HasPrefix(c.Discogs.BaseURL, "http://") && !strings.HasPrefix(c.Discogs.BaseURL, "https://") {
		return configError("discogs.base_url must be an http(s) URL, got %q", c.Discogs.BaseURL)
	}
	if c.Discogs.RequestTimeout <= 0 {
		return configError("discogs.request_timeout must be positive")
	}
	return nil
}

// ValidateResources rejects unknown resource names.
func ValidateResources(resources []string) error {
	for _, resource := range resources {
		if !slices.Contains(ResourceOrder(), resource) {
			return configError("backup.resources: unsupported resource %q", resource)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return configError("logging.level: unsupported level %q", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return configError("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}
