package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crate/internal/config"
	"crate/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakeDiscogs
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("DISCOGS_USERNAME", "")
	t.Setenv("DISCOGS_TOKEN", "")

	fake := testsupport.NewFakeDiscogs(t, "digger", "test-token")
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithBaseURL(fake.URL())}, opts...)...)

	configPath := filepath.Join(homeDir, ".config", "crate", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		fake:       fake,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	quoted := make([]string, 0, len(cfg.Backup.OutputFormats))
	for _, format := range cfg.Backup.OutputFormats {
		quoted = append(quoted, fmt.Sprintf("%q", format))
	}
	content := fmt.Sprintf(`[discogs]
username = %q
api_token = %q
base_url = %q
request_interval_ms = 0

[backup]
dir = %q
output_formats = [%s]
remove_missing_lists = %t

[paths]
state_dir = %q
log_dir = %q

[metrics]
enabled = %t
textfile_path = %q

[notifications]
ntfy_topic = %q
on_success = %t
`,
		cfg.Discogs.Username,
		cfg.Discogs.APIToken,
		cfg.Discogs.BaseURL,
		cfg.Backup.Dir,
		strings.Join(quoted, ", "),
		cfg.Backup.RemoveMissingLists,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Metrics.Enabled,
		cfg.Metrics.TextfilePath,
		cfg.Notifications.NtfyTopic,
		cfg.Notifications.OnSuccess,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file %s: %v", path, err)
	}
	return string(data)
}
