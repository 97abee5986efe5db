package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crate/internal/backupstore"
	"crate/internal/config"
	"crate/internal/export"
	"crate/internal/listsync"
	"crate/internal/logging"
	"crate/internal/metrics"
	"crate/internal/notifications"
)

// historyKeep bounds the number of runs kept in the history database.
const historyKeep = 500

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun     bool
		formats    []string
		resources  []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the Discogs account to the backup directory",
		Long: `Fetch the profile, collection, wantlist, contributions, and lists of the
configured Discogs account and write them in the configured output formats.

Per-record normalization problems are logged and skipped. A resource that
cannot be fetched is reported and the remaining resources still run; the
command then exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			opts := export.Options{
				Username:      cfg.Discogs.Username,
				Formats:       cfg.Backup.OutputFormats,
				Resources:     cfg.Backup.Resources,
				RemoveMissing: cfg.Backup.RemoveMissingLists,
			}
			if cmd.Flags().Changed("format") {
				opts.Formats = config.NormalizeFormats(formats)
			}
			if cmd.Flags().Changed("resource") {
				opts.Resources = config.NormalizeResources(resources)
				if err := config.ValidateResources(opts.Resources); err != nil {
					return err
				}
			}
			// Refuse before any network activity or lock.
			if err := config.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			client, err := ctx.discogsClient(logger)
			if err != nil {
				return err
			}

			var store backupstore.Store
			if dryRun {
				mem, err := seedDryRunStore(cfg.Backup.Dir)
				if err != nil {
					return err
				}
				store = mem
			} else {
				fsStore := backupstore.NewFS(cfg.Backup.Dir)
				if err := fsStore.Lock(); err != nil {
					if errors.Is(err, backupstore.ErrLocked) {
						return fmt.Errorf("another backup is running against %s", cfg.Backup.Dir)
					}
					return err
				}
				defer func() { _ = fsStore.Unlock() }()
				store = fsStore
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			exporter := export.New(client, client.Endpoints(opts.Username), store, opts, logger)
			report, runErr := exporter.Run(runCtx)
			if report == nil {
				return runErr
			}

			recordRun(cmd.Context(), ctx, cfg, report, client.RequestCount(), dryRun, logger)

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := writeJSON(cmd, newReportView(report, dryRun)); err != nil {
					return err
				}
			} else {
				fmt.Fprint(out, renderReport(report, dryRun, shouldColorize(out)))
				if dryRun {
					if mem, ok := store.(*backupstore.Memory); ok {
						fmt.Fprintf(out, "Dry run: %d files would be written to %s\n", len(mem.Written()), cfg.Backup.Dir)
					}
				}
			}

			if runErr != nil {
				return fmt.Errorf("backup finished with failures: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run against an in-memory store without touching the backup directory")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Output formats to write (rawJson, json, csv); overrides the config")
	cmd.Flags().StringSliceVarP(&resources, "resource", "r", nil, "Resources to back up; overrides the config")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

// seedDryRunStore copies the on-disk list index into a memory store so a dry
// run makes the same per-list decisions as a real run would.
func seedDryRunStore(root string) (*backupstore.Memory, error) {
	mem := backupstore.NewMemory()
	handle := backupstore.Handle{Folder: listsync.FolderName, Name: listsync.IndexFileName}
	content, err := backupstore.NewFS(root).ReadContent(handle)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return mem, nil
	case err != nil:
		return nil, err
	}
	mem.Seed(handle.Path(), content)
	return mem, nil
}

// recordRun writes history and metrics and sends the ntfy alert. Failures are logged; they never
// change the outcome of the backup itself.
func recordRun(ctx context.Context, cc *commandContext, cfg *config.Config, report *export.Report, requests int64, dryRun bool, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "cli")

	store, err := cc.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "open history failed", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded in history"),
		)
	} else if store != nil {
		defer store.Close()
		if err := store.RecordRun(ctx, report, dryRun); err != nil {
			logging.WarnWithContext(logger, "record run failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run not recorded in history"),
			)
		} else if _, err := store.Prune(ctx, historyKeep); err != nil {
			logger.Debug("prune history failed", logging.Error(err))
		}
	}

	if cfg.Metrics.Enabled && !dryRun {
		recorder := metrics.NewRecorder()
		recorder.Observe(report, requests)
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logging.WarnWithContext(logger, "write metrics failed", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
				logging.String(logging.FieldImpact, "monitoring shows the previous run"),
			)
		}
	}

	if err := notifications.NewService(cfg).NotifyBackupFinished(ctx, report, dryRun); err != nil {
		logging.WarnWithContext(logger, "send notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic or run crate test-notify"),
		)
	}
}
