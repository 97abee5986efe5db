package history

import (
	"time"

	"crate/internal/export"
)

// Run statuses, shared with export reports.
const (
	StatusOK      = export.StatusOK
	StatusPartial = export.StatusPartial
	StatusFailed  = export.StatusFailed
)

// Run is one recorded backup pass.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Formats    []string
	Status     string
	DryRun     bool
	Error      string
	Resources  []Resource
}

// Resource is the recorded outcome of one resource within a run.
type Resource struct {
	Resource   string        `json:"resource"`
	Status     string        `json:"status"`
	Records    int           `json:"records"`
	Normalized int           `json:"normalized"`
	Skipped    int           `json:"skipped"`
	Files      int           `json:"files"`
	Duration   time.Duration `json:"duration_ns"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Lists      *ListCounts   `json:"lists,omitempty"`
}

// ListCounts summarizes list sync decisions.
type ListCounts struct {
	New       int `json:"new"`
	Refreshed int `json:"refreshed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Purged    int `json:"purged"`
	Retained  int `json:"retained"`
}
