package preflight

import (
	"context"
	"fmt"
	"time"

	"crate/internal/history"
)

// LastRunReader returns the most recent recorded run.
type LastRunReader interface {
	Last(ctx context.Context) (*history.Run, error)
}

// CheckLastRun reports the outcome and age of the most recent backup.
// It never fails on an empty history; a fresh install has simply not run yet.
func CheckLastRun(ctx context.Context, reader LastRunReader, now time.Time) Result {
	const name = "Last backup"

	if reader == nil {
		return Result{Name: name, Passed: true, Detail: "history disabled"}
	}
	run, err := reader.Last(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("read history: %v", err)}
	}
	if run == nil {
		return Result{Name: name, Passed: true, Detail: "no runs recorded"}
	}

	age := now.Sub(run.FinishedAt).Round(time.Minute)
	detail := fmt.Sprintf("%s %s ago (%d resources)", run.Status, age, len(run.Resources))
	if run.DryRun {
		detail += ", dry run"
	}
	if run.Status == history.StatusFailed {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
