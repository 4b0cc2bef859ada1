package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/dashboard"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/internal/snapshot"
)

func newExportCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "export [collection...]",
		Short: "Write collections to JSONL snapshots",
		Long: `Export writes each collection to <dir>/<collection>.jsonl, one record per
line. Without arguments every dashboard collection is exported. The default
directory is the snapshots folder inside the data directory.

Example:
  pantry export
  pantry export projects tasks --to ./backup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			collections := args
			if len(collections) == 0 {
				collections = dashboard.CollectionNames
			}
			dir, err := paths.ResolveSnapshotDir(to, current.settings.Driver.DataDir)
			if err != nil {
				return userError("resolve snapshot dir: %w", err)
			}

			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			if err := snapshot.Dump(cmd.Context(), ws.driver, dir, collections); err != nil {
				return sysError("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d collections to %s\n", len(collections), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output directory (default: <data-dir>/snapshots)")
	return cmd
}
