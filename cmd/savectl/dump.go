package main

import (
	"fmt"

	"github.com/spf13/cobra"

	savedata "github.com/hnb-rabear/RCore-sub006"
)

func newDumpCmd(a *app) *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print store entries and, with --schema, the save tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			defer db.Close()

			var root savedata.Node
			flags := savedata.DumpHeader | savedata.DumpEntries
			if schema != "" {
				root, err = loadSchema(schema)
				if err != nil {
					return err
				}
				db.Load(root)
				flags |= savedata.DumpTree
			}
			fmt.Fprint(cmd.OutOrStdout(), db.Dump(root, flags))
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "save tree declaration file")
	return cmd
}
