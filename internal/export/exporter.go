package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"crate/internal/backupstore"
	"crate/internal/config"
	"crate/internal/csvout"
	"crate/internal/discogs"
	"crate/internal/logging"
	"crate/internal/services"
)

// Fetcher retrieves paginated Discogs responses. *discogs.Client implements it.
type Fetcher interface {
	FetchPages(ctx context.Context, rawURL string, allPages bool) ([][]byte, error)
}

// Options selects what a run exports.
type Options struct {
	Username string
	// Formats holds canonical format names (config.FormatRawJSON, ...).
	Formats []string
	// Resources holds the resource kinds to export; empty means all.
	Resources     []string
	RemoveMissing bool
}

// Exporter runs backup passes.
type Exporter struct {
	fetcher   Fetcher
	endpoints discogs.Endpoints
	store     backupstore.Store
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an exporter writing to store.
func New(fetcher Fetcher, endpoints discogs.Endpoints, store backupstore.Store, opts Options, logger *slog.Logger) *Exporter {
	return &Exporter{
		fetcher:   fetcher,
		endpoints: endpoints,
		store:     store,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "export"),
		now:       time.Now,
	}
}

// Run exports every selected resource. The error is non-nil when the run was
// refused before starting or when at least one resource failed; the report is
// returned whenever the run started.
func (e *Exporter) Run(ctx context.Context) (*Report, error) {
	if err := config.ValidateFormats(e.opts.Formats); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
		Formats:   slices.Clone(e.opts.Formats),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("backup started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("username", e.opts.Username),
		logging.Any("formats", e.opts.Formats),
	)

	state := &runState{}
	steps := []struct {
		resource string
		run      func(context.Context, *ResourceResult, *runState) error
	}{
		{config.ResourceProfile, e.exportProfile},
		{config.ResourceCollection, e.exportCollection},
		{config.ResourceWantlist, e.exportWantlist},
		{config.ResourceContributions, e.exportContributions},
		{config.ResourceLists, e.exportLists},
	}

	for _, step := range steps {
		if !e.selected(step.resource) {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Resources = append(report.Resources, ResourceResult{Resource: step.resource, Err: err})
			continue
		}
		resourceCtx := services.WithResource(ctx, step.resource)
		result := ResourceResult{Resource: step.resource}
		started := e.now()
		err := step.run(resourceCtx, &result, state)
		result.Duration = e.now().Sub(started)
		result.Err = errors.Join(err, result.Err)
		e.logResult(resourceCtx, result)
		report.Resources = append(report.Resources, result)
	}

	e.crossCheck(ctx, state)

	report.FinishedAt = e.now()
	runErr := report.Err()
	if runErr != nil {
		logging.ErrorWithContext(logger, "backup finished with failures", "run_failed",
			logging.Error(runErr),
			logging.Duration("duration", report.Duration()),
		)
	} else {
		logger.Info("backup finished",
			logging.String(logging.FieldEventType, "run_completed"),
			logging.Duration("duration", report.Duration()),
		)
	}
	return report, runErr
}

// runState carries values between resources of one run.
type runState struct {
	profileCollection *int
	profileWantlist   *int
	collectionCount   *int
	wantlistCount     *int
}

func (e *Exporter) selected(resource string) bool {
	return len(e.opts.Resources) == 0 || slices.Contains(e.opts.Resources, resource)
}

func (e *Exporter) hasFormat(format string) bool {
	return slices.Contains(e.opts.Formats, format)
}

// rawOnly reports whether normalization can be skipped entirely.
func (e *Exporter) rawOnly() bool {
	return !e.hasFormat(config.FormatJSON) && !e.hasFormat(config.FormatCSV)
}

// write stores one artifact. Failures are recorded on result and the run
// carries on with the next artifact.
func (e *Exporter) write(ctx context.Context, result *ResourceResult, folder, name string, data []byte) {
	if err := e.store.CreateOrUpdate(folder, name, data); err != nil {
		result.Err = errors.Join(result.Err, err)
		logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "write backup file failed", "write_failed",
			logging.String("file", backupstore.Join(folder, name)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions of the backup directory"),
		)
		return
	}
	result.Files = append(result.Files, backupstore.Join(folder, name))
}

func (e *Exporter) writeJSON(ctx context.Context, result *ResourceResult, folder, name string, v any) {
	data, err := prettyJSON(v)
	if err != nil {
		result.Err = errors.Join(result.Err, err)
		return
	}
	e.write(ctx, result, folder, name, data)
}

func (e *Exporter) writeCSV(ctx context.Context, result *ResourceResult, folder, name string, header []string, dynamic []csvout.DynamicColumn, rows []csvout.Row) {
	e.write(ctx, result, folder, name, []byte(csvout.Encode(header, dynamic, rows)))
}

// fetchCollated fetches every page of rawURL and collates the array at path.
func (e *Exporter) fetchCollated(ctx context.Context, rawURL, path string) ([]json.RawMessage, error) {
	pages, err := e.fetcher.FetchPages(ctx, rawURL, true)
	if err != nil {
		return nil, err
	}
	resource, _ := services.ResourceFromContext(ctx)
	items, err := discogs.Collate(path, pages)
	if err != nil {
		return nil, services.Annotate(resource, "collate", path, err)
	}
	return items, nil
}

// fetchOne fetches a single, non-paginated response body.
func (e *Exporter) fetchOne(ctx context.Context, rawURL string) ([]byte, error) {
	pages, err := e.fetcher.FetchPages(ctx, rawURL, false)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s: empty response", services.ErrTransport, rawURL)
	}
	return pages[0], nil
}

func (e *Exporter) reportNormalizationFailure(ctx context.Context, index int, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "record skipped", "record_skipped",
		logging.Int("index", index),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the raw backup still contains this record"),
		logging.String(logging.FieldImpact, "record missing from filtered JSON and CSV"),
	)
}

func (e *Exporter) logResult(ctx context.Context, result ResourceResult) {
	logger := logging.WithContext(ctx, e.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "resource_finished"),
		logging.String("status", result.Status()),
		logging.Int("records", result.Records),
		logging.Int("files", len(result.Files)),
		logging.Duration("duration", result.Duration),
	}
	if result.Skipped > 0 {
		attrs = append(attrs, logging.Int("skipped", result.Skipped))
	}
	if result.Err != nil {
		attrs = append(attrs, logging.Error(result.Err), logging.String("error_kind", services.Kind(result.Err)))
		logging.ErrorWithContext(logger, "resource backup failed", "resource_failed", attrs...)
		return
	}
	logger.Info("resource backed up", logging.Args(attrs...)...)
}

// crossCheck compares the profile's counters with what was fetched.
func (e *Exporter) crossCheck(ctx context.Context, state *runState) {
	logger := logging.WithContext(ctx, e.logger)
	check := func(name string, declared, fetched *int) {
		if declared == nil || fetched == nil || *declared == *fetched {
			return
		}
		logging.WarnWithContext(logger, "profile count differs from fetched items", "profile_count_mismatch",
			logging.String(logging.FieldResource, name),
			logging.Int("profile_count", *declared),
			logging.Int("fetched", *fetched),
			logging.String(logging.FieldErrorHint, "items may have changed during the run; run the backup again"),
			logging.String(logging.FieldImpact, "backup may be incomplete"),
		)
	}
	check(config.ResourceCollection, state.profileCollection, state.collectionCount)
	check(config.ResourceWantlist, state.profileWantlist, state.wantlistCount)
}
