package listsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"crate/internal/backupstore"
	"crate/internal/discogs"
	"crate/internal/logging"
	"crate/internal/services"
)

// Source provides the live list-of-lists and list details.
type Source interface {
	ListIDs(ctx context.Context) ([]int64, error)
	ListDetail(ctx context.Context, id int64) (json.RawMessage, error)
}

// Exporter writes the artifacts of one list into folder using filename as base name.
type Exporter interface {
	ExportList(ctx context.Context, folder, filename string, detail json.RawMessage) error
}

// Failure records a list that could not be fetched or exported.
type Failure struct {
	ID  int64
	Err error
}

// Summary describes one sync pass.
type Summary struct {
	Live      int
	New       []int64
	Refreshed []int64
	Skipped   []int64
	Failed    []Failure
	Purged    []int64
	// Retained lists orphans kept because removal is disabled.
	Retained []int64
}

// Count returns the number of lists that reached decision d.
func (s *Summary) Count(d Decision) int {
	switch d {
	case DecisionNew:
		return len(s.New)
	case DecisionSkip:
		return len(s.Skipped)
	case DecisionRefresh:
		return len(s.Refreshed)
	default:
		return 0
	}
}

// Engine runs list synchronization against a backup store.
type Engine struct {
	store         backupstore.Store
	source        Source
	exporter      Exporter
	removeMissing bool
	logger        *slog.Logger
}

// NewEngine wires an engine. removeMissing enables deletion of orphaned lists.
func NewEngine(store backupstore.Store, source Source, exporter Exporter, removeMissing bool, logger *slog.Logger) *Engine {
	return &Engine{
		store:         store,
		source:        source,
		exporter:      exporter,
		removeMissing: removeMissing,
		logger:        logging.NewComponentLogger(logger, "listsync"),
	}
}

// Run performs one pass. The returned error is fatal: the live list-of-lists
// could not be read, or a write to the store failed. Fetch and
// normalization failures of a single list are reported in the summary.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	logger := logging.WithContext(ctx, e.logger)
	summary := &Summary{}

	live, err := e.source.ListIDs(ctx)
	if err != nil {
		return summary, err
	}
	summary.Live = len(live)

	folder, err := e.store.FindOrCreateFolder("", FolderName)
	if err != nil {
		return summary, err
	}
	handle, err := e.store.CreateOrGet(folder, IndexFileName, []byte("{}"))
	if err != nil {
		return summary, err
	}
	data, err := e.store.ReadContent(handle)
	if err != nil {
		return summary, err
	}
	index, err := ParseIndex(data)
	if err != nil {
		return summary, err
	}
	orphans := Orphans(index, live)

	persist := func() error {
		encoded, err := index.Marshal()
		if err != nil {
			return err
		}
		if err := e.store.SetContent(handle, encoded); err != nil {
			return fmt.Errorf("persist list index: %w", err)
		}
		return nil
	}

	for _, id := range live {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		listCtx := services.WithListID(ctx, id)
		listLogger := logging.WithContext(listCtx, e.logger)

		entry, decision, err := e.syncList(listCtx, folder, id, index)
		if errors.Is(err, services.ErrPersistence) {
			return summary, err
		}
		if err != nil {
			summary.Failed = append(summary.Failed, Failure{ID: id, Err: err})
			logging.WarnWithContext(listLogger, "list backup failed", "list_sync_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the list is retried on the next run"),
				logging.String(logging.FieldImpact, "previous backup of this list is kept"),
			)
			continue
		}
		index[id] = entry

		switch decision {
		case DecisionNew:
			summary.New = append(summary.New, id)
		case DecisionRefresh:
			summary.Refreshed = append(summary.Refreshed, id)
		case DecisionSkip:
			summary.Skipped = append(summary.Skipped, id)
		}
		listLogger.Info("list synchronized",
			logging.String(logging.FieldEventType, "list_decision"),
			logging.String("decision", decision.String()),
			logging.String("filename", entry.Filename),
		)

		if err := persist(); err != nil {
			return summary, err
		}
	}

	for _, orphan := range orphans {
		id := orphan.ID
		if !e.removeMissing {
			summary.Retained = append(summary.Retained, id)
			continue
		}
		if err := e.deleteArtifacts(folder, orphan.Filename); err != nil {
			return summary, err
		}
		delete(index, id)
		if err := persist(); err != nil {
			return summary, err
		}
		summary.Purged = append(summary.Purged, id)
		logger.Info("orphaned list removed",
			logging.String(logging.FieldEventType, "list_purged"),
			logging.Int64(logging.FieldListID, id),
			logging.String("filename", orphan.Filename),
		)
	}
	if len(summary.Retained) > 0 {
		logger.Info("orphaned lists retained",
			logging.Int("count", len(summary.Retained)),
			logging.String(logging.FieldErrorHint, "set backup.remove_missing_lists = true to delete them"),
		)
	}

	return summary, nil
}

func (e *Engine) syncList(ctx context.Context, folder string, id int64, index Index) (Entry, Decision, error) {
	detail, err := e.source.ListDetail(ctx, id)
	if err != nil {
		return Entry{}, 0, err
	}
	info, err := discogs.DecodeListSummary(detail)
	if err != nil {
		return Entry{}, 0, err
	}

	entry := Entry{ID: id, Filename: Filename(info.Name, id), LastChanged: info.DateChanged}
	stored, known := index[id]
	decision := Classify(stored, known, entry.LastChanged)
	if decision == DecisionSkip {
		return stored, decision, nil
	}

	if err := e.exporter.ExportList(ctx, folder, entry.Filename, detail); err != nil {
		return Entry{}, 0, err
	}
	if known && stored.Filename != entry.Filename && e.removeMissing {
		if err := e.deleteArtifacts(folder, stored.Filename); err != nil {
			return Entry{}, 0, err
		}
	}
	return entry, decision, nil
}

func (e *Engine) deleteArtifacts(folder, filename string) error {
	for _, name := range ArtifactNames(filename) {
		if err := e.store.DeleteFile(folder, name); err != nil {
			return err
		}
	}
	return nil
}
