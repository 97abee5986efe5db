package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/logging"
	"crate/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		runID   string
		lastRun bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show crate's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return errors.New("file logging is disabled (paths.log_dir is empty)")
			}
			if runID != "" && lastRun {
				return errors.New("--run and --last-run are mutually exclusive")
			}

			match := runID
			if lastRun {
				match, err = ctx.lastRunID(cmd.Context())
				if err != nil {
					return err
				}
				if match == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
					return nil
				}
			}

			result, err := logs.Tail(path, logs.TailOptions{Limit: lines, Match: match})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No log lines in %s\n", path)
				}
				return nil
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(runCtx, path, result.Offset, 500*time.Millisecond, match, func(line string) error {
				_, err := fmt.Fprintln(out, line)
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines for this run id")
	cmd.Flags().BoolVar(&lastRun, "last-run", false, "Only show lines for the most recent recorded run")
	return cmd
}

func (c *commandContext) lastRunID(ctx context.Context) (string, error) {
	store, err := c.openHistory()
	if err != nil {
		return "", err
	}
	if store == nil {
		return "", errors.New("--last-run needs run history (history.enabled = false)")
	}
	defer store.Close()
	run, err := store.Last(ctx)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", nil
	}
	return run.ID, nil
}
