package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/listsync"
)

func newListsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show the lists recorded in the backup's list index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Backup.Dir, listsync.FolderName, listsync.IndexFileName)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "No list index at %s; run 'crate backup' first.\n", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("read list index: %w", err)
			}
			index, err := listsync.ParseIndex(data)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, index)
			}
			if len(index) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The list index is empty.")
				return nil
			}

			rows := make([][]string, 0, len(index))
			for _, id := range index.IDs() {
				entry := index[id]
				rows = append(rows, []string{
					strconv.FormatInt(id, 10),
					entry.Filename,
					entry.LastChanged,
					yesNo(artifactsPresent(filepath.Join(cfg.Backup.Dir, listsync.FolderName), entry.Filename)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]tableColumn{
				{Header: "ID", Numeric: true},
				{Header: "Filename"},
				{Header: "Last Changed"},
				{Header: "Files"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the index as JSON")
	return cmd
}

// artifactsPresent reports whether any artifact of the list exists on disk.
func artifactsPresent(dir, filename string) bool {
	for _, name := range listsync.ArtifactNames(filename) {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
