package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newDeleteCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			var env types.Envelope[bool]
			if mine {
				env = ws.scoped(args[0]).DeleteMy(cmd.Context(), args[1])
			} else {
				env = ws.service(args[0]).Delete(cmd.Context(), args[1])
			}
			if err := envelopeError("delete "+args[0]+"/"+args[1], env); err != nil {
				return err
			}
			if flags.jsonMode {
				return printResult(cmd.OutOrStdout(), env)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "require the record to belong to the session user")
	return cmd
}
