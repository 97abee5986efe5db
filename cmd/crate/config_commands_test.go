package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite", "--username", "digger", "--token", "abc123"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "crate status")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	requireContains(t, string(data), `username = "digger"`)
	requireContains(t, string(data), `api_token = "abc123"`)
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-token") {
		t.Fatalf("token leaked: %s", out)
	}
	var shown struct {
		Discogs struct {
			Username string `json:"username"`
			APIToken string `json:"api_token"`
		} `json:"discogs"`
		Backup struct {
			OutputFormats []string `json:"output_formats"`
		} `json:"backup"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode config: %v\n%s", err, out)
	}
	if shown.Discogs.Username != "digger" || shown.Discogs.APIToken != "********" {
		t.Fatalf("unexpected discogs section: %+v", shown.Discogs)
	}
	if len(shown.Backup.OutputFormats) != 3 {
		t.Fatalf("unexpected formats: %v", shown.Backup.OutputFormats)
	}

	out, _, err = runCLI(t, []string{"config", "show", "--toml"}, env.configPath)
	if err != nil {
		t.Fatalf("config show --toml: %v", err)
	}
	requireContains(t, out, "[discogs]")
	requireContains(t, out, "api_token = ")
	requireContains(t, out, "********")
	if strings.Contains(out, "test-token") {
		t.Fatalf("token leaked: %s", out)
	}
}

func TestConfigShowWorksWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Discogs.APIToken = ""
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"config", "show"}, env.configPath); err != nil {
		t.Fatalf("config show without token: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validate to report the missing token")
	}
}
