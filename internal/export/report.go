package export

import (
	"errors"
	"fmt"
	"time"

	"crate/internal/listsync"
	"crate/internal/services"
)

// ResourceResult describes the outcome of one resource.
type ResourceResult struct {
	Resource string
	// Records is the number of items fetched; Normalized and Skipped split
	// them by normalization outcome when normalization ran.
	Records    int
	Normalized int
	Skipped    int
	Files      []string
	Lists      *listsync.Summary
	Duration   time.Duration
	Err        error
}

// Failed reports whether the resource aborted or a write failed.
func (r ResourceResult) Failed() bool {
	return r.Err != nil
}

// Status labels used for resources and whole runs.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Status is a short label for tables and history rows.
func (r ResourceResult) Status() string {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Skipped > 0 || (r.Lists != nil && len(r.Lists.Failed) > 0):
		return StatusPartial
	default:
		return StatusOK
	}
}

// Report describes one backup pass.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Formats    []string
	Resources  []ResourceResult
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is the worst resource status; a run with no resources is ok.
func (r *Report) Status() string {
	status := StatusOK
	for _, result := range r.Resources {
		switch result.Status() {
		case StatusFailed:
			return StatusFailed
		case StatusPartial:
			status = StatusPartial
		}
	}
	return status
}

// Result returns the outcome of resource, if it ran.
func (r *Report) Result(resource string) (ResourceResult, bool) {
	for _, result := range r.Resources {
		if result.Resource == resource {
			return result, true
		}
	}
	return ResourceResult{}, false
}

// Err joins the errors of every failed resource, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, result := range r.Resources {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", result.Resource, services.Kind(result.Err), result.Err))
		}
	}
	return errors.Join(errs...)
}
