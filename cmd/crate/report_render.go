package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"crate/internal/export"
	"crate/internal/listsync"
)

var titleCaser = cases.Title(language.Und)

func resourceTitle(resource string) string {
	return titleCaser.String(resource)
}

func renderReport(report *export.Report, dryRun bool, colorize bool) string {
	var b strings.Builder

	title := "Backup " + shortID(report.RunID)
	if dryRun {
		title += " (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		b.WriteString(line + "\n")
	}

	rows := make([][]string, 0, len(report.Resources))
	for _, result := range report.Resources {
		rows = append(rows, []string{
			resourceTitle(result.Resource),
			result.Status(),
			strconv.Itoa(result.Records),
			strconv.Itoa(result.Skipped),
			strconv.Itoa(len(result.Files)),
			formatDuration(result.Duration),
		})
	}
	b.WriteString(renderTable([]tableColumn{
		{Header: "Resource"},
		{Header: "Status"},
		{Header: "Records", Numeric: true},
		{Header: "Skipped", Numeric: true},
		{Header: "Files", Numeric: true},
		{Header: "Duration", Numeric: true},
	}, rows))
	b.WriteString("\n")

	if result, ok := report.Result("lists"); ok && result.Lists != nil {
		b.WriteString(renderStatusLine("Lists", listsKind(result.Lists), listsSummary(result.Lists), colorize) + "\n")
	}
	for _, result := range report.Resources {
		if result.Err != nil {
			b.WriteString(renderStatusLine(resourceTitle(result.Resource), statusError, result.Err.Error(), colorize) + "\n")
		}
	}

	status := report.Status()
	message := fmt.Sprintf("completed in %s", formatDuration(report.Duration()))
	switch status {
	case export.StatusFailed:
		message = fmt.Sprintf("finished with failures in %s", formatDuration(report.Duration()))
	case export.StatusPartial:
		message = fmt.Sprintf("completed with skipped records or lists in %s", formatDuration(report.Duration()))
	}
	b.WriteString(renderStatusLine("Result", runStatusKind(status), message, colorize) + "\n")
	return b.String()
}

func listsSummary(summary *listsync.Summary) string {
	parts := []string{
		fmt.Sprintf("%d live", summary.Live),
		fmt.Sprintf("%d new", len(summary.New)),
		fmt.Sprintf("%d refreshed", len(summary.Refreshed)),
		fmt.Sprintf("%d unchanged", len(summary.Skipped)),
	}
	if n := len(summary.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if n := len(summary.Purged); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(summary.Retained); n > 0 {
		parts = append(parts, fmt.Sprintf("%d retained", n))
	}
	return strings.Join(parts, ", ")
}

func listsKind(summary *listsync.Summary) statusKind {
	if len(summary.Failed) > 0 || len(summary.Retained) > 0 {
		return statusWarn
	}
	return statusOK
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
