package history

import (
	"crate/internal/export"
	"crate/internal/services"
)

// FromReport flattens an export report into a history row.
func FromReport(report *export.Report, dryRun bool) Run {
	run := Run{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Duration:   report.Duration(),
		Formats:    append([]string(nil), report.Formats...),
		Status:     report.Status(),
		DryRun:     dryRun,
	}
	if err := report.Err(); err != nil {
		run.Error = err.Error()
	}

	for _, result := range report.Resources {
		res := Resource{
			Resource:   result.Resource,
			Status:     result.Status(),
			Records:    result.Records,
			Normalized: result.Normalized,
			Skipped:    result.Skipped,
			Files:      len(result.Files),
			Duration:   result.Duration,
		}
		if result.Err != nil {
			res.ErrorKind = services.Kind(result.Err)
			res.Error = result.Err.Error()
		}
		if summary := result.Lists; summary != nil {
			res.Lists = &ListCounts{
				New:       len(summary.New),
				Refreshed: len(summary.Refreshed),
				Skipped:   len(summary.Skipped),
				Failed:    len(summary.Failed),
				Purged:    len(summary.Purged),
				Retained:  len(summary.Retained),
			}
		}
		run.Resources = append(run.Resources, res)
	}
	return run
}
