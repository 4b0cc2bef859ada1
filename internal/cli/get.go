package cli

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show a single record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			env := ws.service(args[0]).FindOne(cmd.Context(), args[1])
			if err := envelopeError("get "+args[0]+"/"+args[1], env); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), env)
		},
	}
}
