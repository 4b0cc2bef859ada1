package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/dashboard"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/snapshot"
)

func newSeedCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the configured provider",
		Long: `Seed initialises every dashboard collection that does not exist yet.
With --from the collections are read from a directory of JSONL snapshots
instead, one <collection>.jsonl file per collection. Existing collections
are never overwritten.

Providers that cannot be seeded (remote) keep the rows queued; seed
reports those collections as pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seeded []string
			seed := func(ctx context.Context, reg *registry.Registry) error {
				seeded = dashboard.CollectionNames
				return dashboard.RegisterSeeds(ctx, reg)
			}
			if from != "" {
				seed = func(ctx context.Context, reg *registry.Registry) error {
					names, err := snapshot.Restore(ctx, from, reg)
					seeded = names
					return err
				}
			}

			ws, err := openWorkspaceWith(cmd.Context(), setup{seed: seed})
			if err != nil {
				return err
			}
			defer ws.close()

			w := cmd.OutOrStdout()
			pending := ws.reg.PendingCollections()
			fmt.Fprintf(w, "seeded %d collections into %s\n", len(seeded)-len(pending), ws.driver.Name())
			if len(pending) > 0 {
				fmt.Fprintf(w, "pending (provider cannot seed): %s\n", strings.Join(pending, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "directory of JSONL snapshots to seed from")
	return cmd
}
