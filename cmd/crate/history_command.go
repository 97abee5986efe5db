package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("run history is disabled (history.enabled = false)")
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newRunViews(runs))
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := run.Status
				if run.DryRun {
					status += " (dry run)"
				}
				var failed []string
				for _, res := range run.Resources {
					if res.Status == "failed" {
						failed = append(failed, resourceTitle(res.Resource))
					}
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatDuration(run.Duration),
					status,
					strconv.Itoa(len(run.Resources)),
					strings.Join(failed, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]tableColumn{
				{Header: "Run"},
				{Header: "Started"},
				{Header: "Duration", Numeric: true},
				{Header: "Status"},
				{Header: "Resources", Numeric: true},
				{Header: "Failed"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}
