package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newListCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "list <collection> [field=value...]",
		Short: "List records with optional filters",
		Long: `List returns the records of a collection in stored order.

Filters are field=value pairs compared as strings. Multiple filters are
ANDed together. With --mine only records owned by the session user are
returned.

Example:
  pantry list projects
  pantry list tasks projectId=prj_1 status=todo
  pantry list user-activity --mine`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := parseFilters(args[1:])
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			if mine {
				env := ws.scoped(args[0]).FindAllMy(cmd.Context())
				if err := envelopeError("list "+args[0], env); err != nil {
					return err
				}
				if pred != nil {
					kept := env.Data[:0]
					for _, r := range env.Data {
						if pred(r) {
							kept = append(kept, r)
						}
					}
					env.Data = kept
					env.Meta = withTotal(env.Meta, len(kept))
				}
				return printResult(cmd.OutOrStdout(), env)
			}

			svc := ws.service(args[0])
			var env types.Envelope[[]record]
			if pred != nil {
				env = svc.Where(cmd.Context(), pred)
			} else {
				env = svc.FindAll(cmd.Context())
			}
			if err := envelopeError("list "+args[0], env); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), env)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only records owned by the session user")
	return cmd
}

// withTotal returns a copy of meta whose total is n.
func withTotal(meta *types.Meta, n int) *types.Meta {
	out := types.Meta{}
	if meta != nil {
		out = *meta
	}
	out.Total = &n
	return &out
}
