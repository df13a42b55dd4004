package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCompactCmd(a *app) *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Remove entries holding their default value",
		Long: `Loads the save tree declared by --schema and removes the store entries of
leaves that hold their default value. Entries of keys the schema does not
declare are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadSchema(schema)
			if err != nil {
				return err
			}
			db, err := a.openDB(false)
			if err != nil {
				return err
			}
			defer db.Close()

			db.Load(root)
			before := db.StoreStats()
			n, err := db.Compact(root)
			if err != nil {
				return fmt.Errorf("compaction failed: %w", err)
			}
			after := db.StoreStats()
			a.log.Info("compacted",
				zap.String("path", a.cfg.Store.Path),
				zap.Int("removed", n),
				zap.Int("bytes_before", before.TotalBytes()),
				zap.Int("bytes_after", after.TotalBytes()))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d of %d entries\n", n, before.Entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "save tree declaration file")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
