package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"crate/internal/export"
	"crate/internal/listsync"
	"crate/internal/services"
)

func testReport() *export.Report {
	started := time.Unix(1_700_000_000, 0)
	return &export.Report{
		RunID:      "run",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Resources: []export.ResourceResult{
			{Resource: "collection", Records: 120, Normalized: 118, Skipped: 2},
			{Resource: "wantlist", Err: services.ErrTransport},
			{Resource: "lists", Records: 4, Lists: &listsync.Summary{
				New:       []int64{1},
				Refreshed: []int64{2, 3},
				Skipped:   []int64{4},
				Retained:  []int64{9},
			}},
		},
	}
}

func TestObserveSetsGauges(t *testing.T) {
	recorder := NewRecorder()
	recorder.Observe(testReport(), 17)

	if got := testutil.ToFloat64(recorder.lastRun); got != 1_700_000_090 {
		t.Fatalf("last run timestamp = %v", got)
	}
	if got := testutil.ToFloat64(recorder.duration); got != 90 {
		t.Fatalf("duration = %v", got)
	}
	if got := testutil.ToFloat64(recorder.lastSuccess); got != 0 {
		t.Fatalf("expected failed run, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.requests); got != 17 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(recorder.records.WithLabelValues("collection")); got != 120 {
		t.Fatalf("collection records = %v", got)
	}
	if got := testutil.ToFloat64(recorder.skipped.WithLabelValues("collection")); got != 2 {
		t.Fatalf("collection skipped = %v", got)
	}
	if got := testutil.ToFloat64(recorder.resourceOK.WithLabelValues("wantlist")); got != 0 {
		t.Fatalf("wantlist success = %v", got)
	}
	if got := testutil.ToFloat64(recorder.resourceOK.WithLabelValues("collection")); got != 1 {
		t.Fatalf("collection success = %v", got)
	}
	if got := testutil.ToFloat64(recorder.listDecision.WithLabelValues("refresh")); got != 2 {
		t.Fatalf("refresh decisions = %v", got)
	}
	if got := testutil.ToFloat64(recorder.listDecision.WithLabelValues("skip")); got != 1 {
		t.Fatalf("skip decisions = %v", got)
	}
	if got := testutil.ToFloat64(recorder.listDecision.WithLabelValues("retained")); got != 1 {
		t.Fatalf("retained lists = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	recorder := NewRecorder()
	recorder.Observe(&export.Report{FinishedAt: time.Unix(10, 0), StartedAt: time.Unix(5, 0)}, 0)

	path := filepath.Join(t.TempDir(), "nested", "crate.prom")
	if err := recorder.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{"crate_last_run_success 1", "crate_last_run_timestamp_seconds 10", "crate_last_run_duration_seconds 5"} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestWriteTextfileReportsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewRecorder().WriteTextfile(filepath.Join(blocker, "crate.prom"))
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
