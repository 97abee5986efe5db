package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"testing"

	"crate/internal/backupstore"
	"crate/internal/config"
	"crate/internal/discogs"
	"crate/internal/export"
	"crate/internal/listsync"
	"crate/internal/logging"
	"crate/internal/services"
	"crate/internal/testsupport"
)

type harness struct {
	fake     *testsupport.FakeDiscogs
	client   *discogs.Client
	store    *backupstore.Memory
	username string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testsupport.NewFakeDiscogs(t, "digger", "test-token")
	client, err := discogs.New("test-token", fake.URL())
	if err != nil {
		t.Fatalf("discogs.New: %v", err)
	}
	return &harness{fake: fake, client: client, store: backupstore.NewMemory(), username: "digger"}
}

func (h *harness) exporter(opts export.Options) *export.Exporter {
	opts.Username = h.username
	return export.New(h.client, h.client.Endpoints(h.username), h.store, opts, logging.NewNop())
}

func (h *harness) file(t *testing.T, path string) string {
	t.Helper()
	data, ok := h.store.File(path)
	if !ok {
		t.Fatalf("expected %s to be written; have %v", path, h.store.Paths())
	}
	return string(data)
}

func allFormats() []string {
	return []string{config.FormatRawJSON, config.FormatJSON, config.FormatCSV}
}

func TestRunRefusesEmptyFormatSet(t *testing.T) {
	h := newHarness(t)

	report, err := h.exporter(export.Options{}).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if report != nil {
		t.Fatalf("expected no report, got %+v", report)
	}
	if got := h.fake.Requests(); len(got) != 0 {
		t.Fatalf("expected no requests, got %v", got)
	}
	if paths := h.store.Paths(); len(paths) != 0 {
		t.Fatalf("expected no writes, got %v", paths)
	}
}

func TestRunWritesEveryFormat(t *testing.T) {
	h := newHarness(t)

	report, err := h.exporter(export.Options{Formats: allFormats()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}

	want := []string{
		"digger.json", "profile.json", "profile.csv",
		"collection.raw.json", "collection.json", "collection.csv",
		"wantlist.raw.json", "wantlist.json", "wantlist.csv",
		"contributions.raw.json", "contributions.json", "contributions.csv",
		"lists/meta.list.json",
		"lists/desert_island_11.raw.json", "lists/desert_island_11.json", "lists/desert_island_11.csv",
		"lists/spiritual_jazz_12.raw.json", "lists/spiritual_jazz_12.json", "lists/spiritual_jazz_12.csv",
	}
	for _, path := range want {
		h.file(t, path)
	}

	for _, resource := range config.ResourceOrder() {
		result, ok := report.Result(resource)
		if !ok {
			t.Fatalf("missing result for %s", resource)
		}
		if result.Status() != "ok" {
			t.Fatalf("%s: status %s, err %v", resource, result.Status(), result.Err)
		}
	}
	collection, _ := report.Result(config.ResourceCollection)
	if collection.Records != 3 || collection.Normalized != 3 {
		t.Fatalf("unexpected collection counts: %+v", collection)
	}
}

func TestCollectionSpansPages(t *testing.T) {
	h := newHarness(t)
	h.fake.SetPerPage(1)

	if _, err := h.exporter(export.Options{Formats: []string{config.FormatRawJSON}, Resources: []string{config.ResourceCollection}}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(h.file(t, "collection.raw.json")), &items); err != nil {
		t.Fatalf("decode raw collection: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 collated releases, got %d", len(items))
	}
	ids := []float64{items[0]["id"].(float64), items[1]["id"].(float64), items[2]["id"].(float64)}
	if !slices.Equal(ids, []float64{1001, 1002, 1003}) {
		t.Fatalf("expected page order, got %v", ids)
	}
}

func TestCollectionCSVResolvesFoldersAndFields(t *testing.T) {
	h := newHarness(t)

	if _, err := h.exporter(export.Options{Formats: []string{config.FormatCSV}, Resources: []string{config.ResourceCollection}}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(h.file(t, "collection.csv"), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[0], ",Media Condition,Sleeve Condition,Notes") {
		t.Fatalf("expected field columns at the end of the header, got %q", lines[0])
	}
	if !strings.Contains(lines[1], ",1001,Jazz,") {
		t.Fatalf("expected folder name in row, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], `,Near Mint (NM or M-),,"first press, ""6-eye"" label"`) {
		t.Fatalf("unexpected note cells: %q", lines[1])
	}
	if !strings.Contains(lines[3], ",Simon & Garfunkel's Greatest Hits,") || !strings.Contains(lines[3], ",1003,Uncategorized,") {
		t.Fatalf("unexpected third row: %q", lines[3])
	}
	if !strings.HasSuffix(lines[3], ",,VG+,") {
		t.Fatalf("expected aligned note cells, got %q", lines[3])
	}

	if _, ok := h.store.File("collection.raw.json"); ok {
		t.Fatal("raw collection written although rawJson was not selected")
	}
	if _, ok := h.store.File("collection.json"); ok {
		t.Fatal("filtered collection written although json was not selected")
	}
}

func TestRawOnlySkipsLookups(t *testing.T) {
	h := newHarness(t)

	if _, err := h.exporter(export.Options{Formats: []string{config.FormatRawJSON}}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, uri := range h.fake.Requests() {
		if strings.Contains(uri, "/collection/folders?") || strings.Contains(uri, "/collection/fields") {
			t.Fatalf("lookup fetched in raw-only run: %s", uri)
		}
	}
	for _, path := range h.store.Paths() {
		if strings.HasSuffix(path, ".csv") || (strings.HasSuffix(path, ".json") && !strings.HasSuffix(path, ".raw.json") && path != "digger.json" && path != "lists/meta.list.json") {
			t.Fatalf("unexpected artifact %s in raw-only run", path)
		}
	}
	h.file(t, "digger.json")
}

func TestCollectionRawSurvivesLookupFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.FailPath("/users/digger/collection/folders", http.StatusBadGateway)

	report, err := h.exporter(export.Options{Formats: allFormats(), Resources: []string{config.ResourceCollection}}).Run(context.Background())
	if err == nil {
		t.Fatal("expected run error")
	}
	collection, _ := report.Result(config.ResourceCollection)
	if collection.Status() != "failed" {
		t.Fatalf("expected failed collection, got %s", collection.Status())
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(h.file(t, "collection.raw.json")), &items); err != nil {
		t.Fatalf("decode raw collection: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 raw releases, got %d", len(items))
	}
	if !slices.Equal(collection.Files, []string{"collection.raw.json"}) {
		t.Fatalf("unexpected files %v", collection.Files)
	}
	for _, path := range []string{"collection.json", "collection.csv"} {
		if _, ok := h.store.File(path); ok {
			t.Fatalf("%s written despite lookup failure", path)
		}
	}
}

func TestRecordFailingNormalizationIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.fake.EditCollectionItem(1002, func(item map[string]any) {
		delete(item, "basic_information")
	})

	report, err := h.exporter(export.Options{Formats: allFormats(), Resources: []string{config.ResourceCollection}}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	collection, _ := report.Result(config.ResourceCollection)
	if collection.Records != 3 || collection.Normalized != 2 || collection.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", collection)
	}
	if collection.Status() != "partial" {
		t.Fatalf("expected partial status, got %s", collection.Status())
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(h.file(t, "collection.raw.json")), &raw); err != nil {
		t.Fatalf("decode raw collection: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("raw backup must keep every record, got %d", len(raw))
	}
	var filtered []map[string]any
	if err := json.Unmarshal([]byte(h.file(t, "collection.json")), &filtered); err != nil {
		t.Fatalf("decode filtered collection: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 filtered records, got %d", len(filtered))
	}

	lines := strings.Split(strings.TrimSuffix(h.file(t, "collection.csv"), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], ",1001,") || !strings.Contains(lines[2], ",1003,") {
		t.Fatalf("unexpected rows %q", lines[1:])
	}
}

func TestResourceFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.fake.FailPath("/users/digger/wants", http.StatusBadGateway)

	report, err := h.exporter(export.Options{Formats: allFormats()}).Run(context.Background())
	if err == nil {
		t.Fatal("expected run error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	wantlist, _ := report.Result(config.ResourceWantlist)
	if !wantlist.Failed() || wantlist.Status() != "failed" {
		t.Fatalf("expected wantlist failure, got %+v", wantlist)
	}
	if _, ok := h.store.File("wantlist.json"); ok {
		t.Fatal("wantlist written despite failure")
	}
	for _, resource := range []string{config.ResourceProfile, config.ResourceCollection, config.ResourceContributions, config.ResourceLists} {
		result, _ := report.Result(resource)
		if result.Failed() {
			t.Fatalf("%s failed: %v", resource, result.Err)
		}
	}
	h.file(t, "contributions.csv")
}

func TestListFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t)
	h.fake.FailPath("/lists/12", http.StatusInternalServerError)

	report, err := h.exporter(export.Options{Formats: []string{config.FormatJSON}, Resources: []string{config.ResourceLists}}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, _ := report.Result(config.ResourceLists)
	if result.Status() != "partial" {
		t.Fatalf("expected partial status, got %s", result.Status())
	}
	if len(result.Lists.Failed) != 1 || result.Lists.Failed[0].ID != 12 {
		t.Fatalf("unexpected failures: %+v", result.Lists.Failed)
	}

	index, err := listsync.ParseIndex([]byte(h.file(t, "lists/meta.list.json")))
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if _, ok := index[12]; ok {
		t.Fatal("failed list recorded in index")
	}
	if index[11].Filename != "desert_island_11" {
		t.Fatalf("unexpected entry: %+v", index[11])
	}
}

func TestSecondRunSkipsUnchangedLists(t *testing.T) {
	h := newHarness(t)
	exporter := h.exporter(export.Options{Formats: allFormats(), Resources: []string{config.ResourceLists}, RemoveMissing: true})

	if _, err := exporter.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	h.store.ResetWrites()
	h.fake.ResetRequests()

	report, err := exporter.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	result, _ := report.Result(config.ResourceLists)
	if len(result.Lists.Skipped) != 2 {
		t.Fatalf("expected both lists skipped, got %+v", result.Lists)
	}
	if writes := h.store.Writes("lists/desert_island_11.json"); writes != 0 {
		t.Fatalf("unchanged list rewritten %d times", writes)
	}

	h.fake.SetLists(testsupport.FakeList{ID: 12, Name: "Spiritual Jazz", DateChanged: "2024-03-01T10:00:00-08:00"})
	report, err = exporter.Run(context.Background())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	result, _ = report.Result(config.ResourceLists)
	if !slices.Equal(result.Lists.Refreshed, []int64{12}) || !slices.Equal(result.Lists.Purged, []int64{11}) {
		t.Fatalf("unexpected summary: %+v", result.Lists)
	}
	if _, ok := h.store.File("lists/desert_island_11.csv"); ok {
		t.Fatal("orphaned list artifacts kept")
	}
	if csv := h.file(t, "lists/spiritual_jazz_12.csv"); strings.Count(csv, "\n") != 1 {
		t.Fatalf("expected header only for empty list, got %q", csv)
	}
}

func TestReportErrNamesFailedResources(t *testing.T) {
	report := &export.Report{Resources: []export.ResourceResult{
		{Resource: config.ResourceProfile},
		{Resource: config.ResourceCollection, Err: services.ErrMalformedPage},
	}}
	err := report.Err()
	if err == nil || !strings.Contains(err.Error(), "collection (malformed_page)") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, services.ErrMalformedPage) {
		t.Fatal("expected marker preserved")
	}
	if (&export.Report{Resources: []export.ResourceResult{{Resource: "profile"}}}).Err() != nil {
		t.Fatal("expected nil error for a clean report")
	}
}

func TestProfileCountMismatchWarnsWithoutFailing(t *testing.T) {
	h := newHarness(t)
	h.fake.SetProfileField("num_collection", 5)

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	exporter := export.New(h.client, h.client.Endpoints(h.username), h.store, export.Options{
		Username:  h.username,
		Formats:   []string{config.FormatJSON},
		Resources: []string{config.ResourceProfile, config.ResourceCollection, config.ResourceWantlist},
	}, logger)

	if _, err := exporter.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var warning map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry[logging.FieldEventType] == "profile_count_mismatch" {
			if warning != nil {
				t.Fatalf("expected a single mismatch warning, got another: %v", entry)
			}
			warning = entry
		}
	}
	if warning == nil {
		t.Fatalf("expected profile_count_mismatch warning in:\n%s", buf.String())
	}
	if warning["resource"] != config.ResourceCollection || warning["profile_count"] != float64(5) || warning["fetched"] != float64(3) {
		t.Fatalf("unexpected warning fields: %v", warning)
	}
}
