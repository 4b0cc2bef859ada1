package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newUpdateCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "update <collection> <id> <json>",
		Short: "Merge a JSON patch into a record",
		Long: `Update shallow-merges a JSON object into the record with the given id.
The id is never changed and updatedAt is refreshed. With --mine the record
must belong to the session user and the owner cannot be reassigned.

Example:
  pantry update tasks t_1 '{"status":"done"}'
  pantry update projects prj_1 '{"progress":80}' --mine`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDocument(args[2])
			if err != nil {
				return err
			}
			patch := types.Patch(doc)
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			what := "update " + args[0] + "/" + args[1]
			if mine {
				env := ws.scoped(args[0]).UpdateMy(cmd.Context(), args[1], patch)
				if err := envelopeError(what, env); err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), env)
			}
			env := ws.service(args[0]).Update(cmd.Context(), args[1], patch)
			if err := envelopeError(what, env); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), env)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "require the record to belong to the session user")
	return cmd
}
