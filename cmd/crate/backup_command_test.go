package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"crate/internal/backupstore"
	"crate/internal/services"
	"crate/internal/testsupport"
)

func TestBackupWritesFilesHistoryAndMetrics(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMetrics())

	out, _, err := runCLI(t, []string{"backup"}, env.configPath)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	requireContains(t, out, "Collection")
	requireContains(t, out, "Contributions")
	requireContains(t, out, "2 live, 2 new")
	requireContains(t, out, "[OK] completed")

	for _, name := range []string{"digger.json", "profile.csv", "collection.csv", "wantlist.json", "contributions.raw.json"} {
		requireFile(t, filepath.Join(env.cfg.Backup.Dir, name))
	}
	index := requireFile(t, filepath.Join(env.cfg.Backup.Dir, "lists", "meta.list.json"))
	requireContains(t, index, `"filename": "desert_island_11"`)

	metrics := requireFile(t, env.cfg.Metrics.TextfilePath)
	requireContains(t, metrics, "crate_last_run_success 1")
	requireContains(t, metrics, `crate_resource_records{resource="collection"} 3`)

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "ok")

	out, _, err = runCLI(t, []string{"lists"}, env.configPath)
	if err != nil {
		t.Fatalf("lists: %v", err)
	}
	requireContains(t, out, "desert_island_11")
	requireContains(t, out, "spiritual_jazz_12")
}

func TestBackupDryRunLeavesBackupDirEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"backup", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("backup --dry-run: %v", err)
	}
	requireContains(t, out, "(dry run)")
	requireContains(t, out, "files would be written")

	entries, err := os.ReadDir(env.cfg.Backup.Dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run wrote %d entries", len(entries))
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []struct {
		DryRun bool `json:"dry_run"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 || !runs[0].DryRun {
		t.Fatalf("unexpected history: %s", out)
	}
}

func TestBackupDryRunAfterBackupSkipsUnchangedLists(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"backup"}, env.configPath); err != nil {
		t.Fatalf("backup: %v", err)
	}
	indexPath := filepath.Join(env.cfg.Backup.Dir, "lists", "meta.list.json")
	before, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}

	out, _, err := runCLI(t, []string{"backup", "--dry-run", "--json", "--resource", "lists"}, env.configPath)
	if err != nil {
		t.Fatalf("backup --dry-run: %v", err)
	}
	var report struct {
		Resources []struct {
			Resource string   `json:"resource"`
			Files    []string `json:"files"`
			Lists    *struct {
				New       []int64 `json:"new"`
				Refreshed []int64 `json:"refreshed"`
				Skipped   []int64 `json:"skipped"`
			} `json:"lists"`
		} `json:"resources"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Resources) != 1 || report.Resources[0].Lists == nil {
		t.Fatalf("unexpected report: %s", out)
	}
	lists := report.Resources[0]
	if len(lists.Lists.New) != 0 || len(lists.Lists.Refreshed) != 0 {
		t.Fatalf("dry run re-exported lists: %s", out)
	}
	if !slices.Equal(lists.Lists.Skipped, []int64{11, 12}) {
		t.Fatalf("skipped = %v, want [11 12]", lists.Lists.Skipped)
	}
	if len(lists.Files) != 0 {
		t.Fatalf("dry run reported list files %v", lists.Files)
	}

	after, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(after) != string(before) {
		t.Fatal("dry run modified the list index on disk")
	}
}

func TestBackupRefusesEmptyFormatOverride(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"backup", "--format", ""}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if got := env.fake.Requests(); len(got) != 0 {
		t.Fatalf("expected no requests, got %v", got)
	}
}

func TestBackupFormatOverrideIsCaseInsensitive(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"backup", "--format", "CSV", "--resource", "wantlist"}, env.configPath); err != nil {
		t.Fatalf("backup: %v", err)
	}
	requireFile(t, filepath.Join(env.cfg.Backup.Dir, "wantlist.csv"))
	if _, err := os.Stat(filepath.Join(env.cfg.Backup.Dir, "wantlist.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no wantlist.json, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Backup.Dir, "collection.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected collection to be skipped, got %v", err)
	}
}

func TestBackupFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fake.FailPath("/users/digger/collection/folders/0/releases", http.StatusServiceUnavailable)

	out, _, err := runCLI(t, []string{"backup", "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure")
	}
	requireContains(t, err.Error(), "collection (transport)")

	var report struct {
		Success   bool `json:"success"`
		Resources []struct {
			Resource  string `json:"resource"`
			Status    string `json:"status"`
			ErrorKind string `json:"error_kind"`
		} `json:"resources"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Success || len(report.Resources) != 5 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, res := range report.Resources {
		want := "ok"
		if res.Resource == "collection" {
			want = "failed"
		}
		if res.Status != want {
			t.Fatalf("%s: status %s, want %s", res.Resource, res.Status, want)
		}
	}
	requireFile(t, filepath.Join(env.cfg.Backup.Dir, "wantlist.csv"))
}

func TestBackupRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	held := backupstore.NewFS(env.cfg.Backup.Dir)
	if err := held.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	_, _, err := runCLI(t, []string{"backup"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another backup is running") {
		t.Fatalf("expected lock error, got %v", err)
	}
	if got := env.fake.Requests(); len(got) != 0 {
		t.Fatalf("expected no requests, got %v", got)
	}
}

func TestBackupRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Discogs.APIToken = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"backup"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
