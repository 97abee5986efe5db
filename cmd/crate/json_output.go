package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/export"
	"crate/internal/history"
	"crate/internal/listsync"
	"crate/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type reportView struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMS int64          `json:"duration_ms"`
	DryRun     bool           `json:"dry_run"`
	Formats    []string       `json:"formats"`
	Success    bool           `json:"success"`
	Resources  []resourceView `json:"resources"`
}

type resourceView struct {
	Resource   string     `json:"resource"`
	Status     string     `json:"status"`
	Records    int        `json:"records"`
	Normalized int        `json:"normalized"`
	Skipped    int        `json:"skipped"`
	Files      []string   `json:"files"`
	DurationMS int64      `json:"duration_ms"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	Lists      *listsView `json:"lists,omitempty"`
}

type listsView struct {
	Live      int              `json:"live"`
	New       []int64          `json:"new"`
	Refreshed []int64          `json:"refreshed"`
	Skipped   []int64          `json:"skipped"`
	Failed    []listFailedView `json:"failed"`
	Purged    []int64          `json:"purged"`
	Retained  []int64          `json:"retained"`
}

type listFailedView struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

func newReportView(report *export.Report, dryRun bool) reportView {
	view := reportView{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		DurationMS: report.Duration().Milliseconds(),
		DryRun:     dryRun,
		Formats:    report.Formats,
		Success:    report.Err() == nil,
		Resources:  make([]resourceView, 0, len(report.Resources)),
	}
	for _, result := range report.Resources {
		res := resourceView{
			Resource:   result.Resource,
			Status:     result.Status(),
			Records:    result.Records,
			Normalized: result.Normalized,
			Skipped:    result.Skipped,
			Files:      nonNil(result.Files),
			DurationMS: result.Duration.Milliseconds(),
		}
		if result.Err != nil {
			res.ErrorKind = services.Kind(result.Err)
			res.Error = result.Err.Error()
		}
		if result.Lists != nil {
			res.Lists = newListsView(result.Lists)
		}
		view.Resources = append(view.Resources, res)
	}
	return view
}

func newListsView(summary *listsync.Summary) *listsView {
	view := &listsView{
		Live:      summary.Live,
		New:       nonNil(summary.New),
		Refreshed: nonNil(summary.Refreshed),
		Skipped:   nonNil(summary.Skipped),
		Failed:    make([]listFailedView, 0, len(summary.Failed)),
		Purged:    nonNil(summary.Purged),
		Retained:  nonNil(summary.Retained),
	}
	for _, failure := range summary.Failed {
		view.Failed = append(view.Failed, listFailedView{ID: failure.ID, Error: failure.Err.Error()})
	}
	return view
}

type runView struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	DryRun     bool              `json:"dry_run"`
	Formats    []string          `json:"formats"`
	Error      string            `json:"error,omitempty"`
	Resources  []history.Resource `json:"resources"`
}

func newRunViews(runs []history.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			RunID:      run.ID,
			StartedAt:  run.StartedAt,
			DurationMS: run.Duration.Milliseconds(),
			Status:     run.Status,
			DryRun:     run.DryRun,
			Formats:    nonNil(run.Formats),
			Error:      run.Error,
			Resources:  nonNil(run.Resources),
		})
	}
	return views
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
