package config

const (
	defaultConfigPath        = "~/.config/crate/config.toml"
	defaultBaseURL           = "https://api.discogs.com"
	defaultUserAgent         = "crate/dev"
	defaultRequestTimeout    = 30
	defaultRequestIntervalMS = 1000
	defaultBackupDir         = "~/.local/share/crate/backup"
	defaultStateDir          = "~/.local/share/crate"
	defaultLogDir            = "~/.local/share/crate/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultMetricsFilename   = "crate.prom"
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Discogs: Discogs{
			BaseURL:           defaultBaseURL,
			UserAgent:         defaultUserAgent,
			RequestTimeout:    defaultRequestTimeout,
			RequestIntervalMS: defaultRequestIntervalMS,
		},
		Backup: Backup{
			Dir:           defaultBackupDir,
			OutputFormats: KnownFormats(),
			Resources:     ResourceOrder(),
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
