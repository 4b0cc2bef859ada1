package cli

import (
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "create <collection> <json>",
		Short: "Insert a record",
		Long: `Create inserts one JSON object into a collection. A record without an
id is given a time-ordered UUID. With --mine the record is stamped with the
session user as its owner.

Example:
  pantry create tasks '{"projectId":"prj_1","title":"Ship it","status":"todo"}'
  pantry create projects '{"name":"Docs","flags":1}' --mine`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDocument(args[1])
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.close()

			if mine {
				env := ws.scoped(args[0]).CreateOneMy(cmd.Context(), record(doc))
				if err := envelopeError("create "+args[0], env); err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), env)
			}
			env := ws.service(args[0]).CreateOne(cmd.Context(), record(doc))
			if err := envelopeError("create "+args[0], env); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), env)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "stamp the session user as owner")
	return cmd
}
