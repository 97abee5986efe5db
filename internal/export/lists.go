package export

import (
	"context"
	"encoding/json"
	"errors"

	"crate/internal/config"
	"crate/internal/discogs"
	"crate/internal/listsync"
	"crate/internal/records"
)

func (e *Exporter) exportLists(ctx context.Context, result *ResourceResult, _ *runState) error {
	source := &listSource{exporter: e}
	engine := listsync.NewEngine(e.store, source, &listWriter{exporter: e, result: result}, e.opts.RemoveMissing, e.logger)
	summary, err := engine.Run(ctx)
	result.Lists = summary
	result.Records = summary.Live
	result.Skipped = len(summary.Failed)
	result.Normalized = summary.Live - len(summary.Failed)
	return err
}

// listSource reads the list-of-lists and list details from Discogs.
type listSource struct {
	exporter *Exporter
}

func (s *listSource) ListIDs(ctx context.Context) ([]int64, error) {
	items, err := s.exporter.fetchCollated(ctx, s.exporter.endpoints.Lists(), discogs.ArrayLists)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		summary, err := discogs.DecodeListSummary(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, summary.ID)
	}
	return ids, nil
}

func (s *listSource) ListDetail(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.exporter.fetchOne(ctx, s.exporter.endpoints.List(id))
}

// listWriter writes the artifacts of one list.
type listWriter struct {
	exporter *Exporter
	result   *ResourceResult
}

func (w *listWriter) ExportList(ctx context.Context, folder, filename string, detail json.RawMessage) error {
	e := w.exporter
	// Collect this list's write errors separately so they can be returned to
	// the sync engine, which treats them as fatal.
	local := &ResourceResult{}
	defer func() {
		w.result.Files = append(w.result.Files, local.Files...)
	}()

	if e.hasFormat(config.FormatRawJSON) {
		raw, err := prettyBody(detail)
		if err != nil {
			return err
		}
		e.write(ctx, local, folder, filename+listsync.SuffixRawJSON, raw)
	}
	if e.rawOnly() {
		return local.Err
	}

	list, err := records.NormalizeList(detail)
	if err != nil {
		return errors.Join(local.Err, err)
	}
	if e.hasFormat(config.FormatJSON) {
		e.writeJSON(ctx, local, folder, filename+listsync.SuffixJSON, list)
	}
	if e.hasFormat(config.FormatCSV) {
		e.writeCSV(ctx, local, folder, filename+listsync.SuffixCSV, records.ListHeader(), nil, list.CSVRows())
	}
	return local.Err
}
