package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"crate/internal/export"
	"crate/internal/history"
	"crate/internal/listsync"
	"crate/internal/services"
	"crate/internal/testsupport"
)

func sampleReport(id string, started time.Time) *export.Report {
	return &export.Report{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Formats:    []string{"rawJson", "csv"},
		Resources: []export.ResourceResult{
			{Resource: "profile", Records: 1, Normalized: 1, Files: []string{"digger.json", "profile.csv"}},
			{Resource: "wantlist", Err: services.Wrap(services.ErrTransport, "wantlist", "fetch", "page 1", errors.New("connection reset"))},
			{Resource: "lists", Records: 3, Normalized: 2, Skipped: 1, Lists: &listsync.Summary{
				Live:    3,
				New:     []int64{1},
				Skipped: []int64{2},
				Failed:  []listsync.Failure{{ID: 3, Err: services.ErrTransport}},
				Purged:  []int64{9},
			}},
		},
	}
}

func TestRecordRunRoundTrip(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	if err := store.RecordRun(ctx, sampleReport("run-1", started), false); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	run, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if run == nil || run.ID != "run-1" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Status != history.StatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if !run.StartedAt.Equal(started) || run.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected timing: %v %v", run.StartedAt, run.Duration)
	}
	if !slices.Equal(run.Formats, []string{"rawJson", "csv"}) {
		t.Fatalf("unexpected formats: %v", run.Formats)
	}
	if !strings.Contains(run.Error, "wantlist (transport)") {
		t.Fatalf("unexpected run error: %q", run.Error)
	}
	if len(run.Resources) != 3 {
		t.Fatalf("expected 3 resources, got %d", len(run.Resources))
	}

	profile := run.Resources[0]
	if profile.Resource != "profile" || profile.Files != 2 || profile.Lists != nil {
		t.Fatalf("unexpected profile row: %+v", profile)
	}
	wantlist := run.Resources[1]
	if wantlist.Status != "failed" || wantlist.ErrorKind != "transport" {
		t.Fatalf("unexpected wantlist row: %+v", wantlist)
	}
	lists := run.Resources[2]
	if lists.Status != "partial" || lists.Lists == nil {
		t.Fatalf("unexpected lists row: %+v", lists)
	}
	if *lists.Lists != (history.ListCounts{New: 1, Skipped: 1, Failed: 1, Purged: 1}) {
		t.Fatalf("unexpected list counts: %+v", *lists.Lists)
	}
}

func TestRunsNewestFirstAndPrune(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		report := &export.Report{RunID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), FinishedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.RecordRun(ctx, report, i == 2); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	var ids []string
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	if !slices.Equal(ids, []string{"c", "b", "a"}) {
		t.Fatalf("unexpected order: %v", ids)
	}
	if !runs[0].DryRun || runs[1].DryRun {
		t.Fatal("dry run flag not preserved")
	}
	if runs[0].Status != history.StatusOK {
		t.Fatalf("expected ok status for empty run, got %s", runs[0].Status)
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 runs removed, got %d", removed)
	}
	runs, err = store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Fatalf("unexpected runs after prune: %+v", runs)
	}
}

func TestRunsOrderWithinOneSecond(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	second := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, report := range []*export.Report{
		{RunID: "whole", StartedAt: second, FinishedAt: second},
		{RunID: "half", StartedAt: second.Add(500 * time.Millisecond), FinishedAt: second.Add(time.Second)},
		{RunID: "late", StartedAt: second.Add(999_999_999), FinishedAt: second.Add(time.Second)},
	} {
		if err := store.RecordRun(ctx, report, false); err != nil {
			t.Fatalf("RecordRun %s: %v", report.RunID, err)
		}
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	var ids []string
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	if !slices.Equal(ids, []string{"late", "half", "whole"}) {
		t.Fatalf("unexpected order: %v", ids)
	}
	if !runs[1].StartedAt.Equal(second.Add(500 * time.Millisecond)) {
		t.Fatalf("fraction not preserved: %v", runs[1].StartedAt)
	}

	last, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last == nil || last.ID != "late" {
		t.Fatalf("unexpected last run: %+v", last)
	}
}

func TestLastOnEmptyHistory(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	run, err := store.Last(context.Background())
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if run != nil {
		t.Fatalf("expected no run, got %+v", run)
	}
}

func TestDuplicateRunIsPersistenceError(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	report := sampleReport("dup", time.Now())
	if err := store.RecordRun(ctx, report, false); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.RecordRun(ctx, report, false); !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || len(runs[0].Resources) != 3 {
		t.Fatalf("duplicate insert left partial rows: %+v", runs)
	}
}

func TestOpenReportsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	path := store.Path()
	if path != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected database path %s", path)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.OpenPath(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
