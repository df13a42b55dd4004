package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	savedata "github.com/hnb-rabear/RCore-sub006"
	"github.com/hnb-rabear/RCore-sub006/sqlstore"
)

func newPushCmd(a *app) *cobra.Command {
	var slot string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Copy the save file into a MySQL save slot",
		Long: `Replaces the contents of a MySQL save slot with the entries of the bolt
save file. Keys missing from the save file are deleted from the slot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if slot == "" {
				slot = a.cfg.Database.Slot
			}
			src, err := savedata.OpenBolt(a.cfg.Store.Path, a.cfg.Store.BoltOptions(true))
			if err != nil {
				return err
			}
			defer src.Close()

			gdb, err := sqlstore.Connect(a.cfg.Database)
			if err != nil {
				return fmt.Errorf("database connection required: %w", err)
			}
			if err := sqlstore.Migrate(gdb); err != nil {
				return err
			}
			dst, err := sqlstore.Open(cmd.Context(), gdb, slot)
			if err != nil {
				return err
			}
			defer dst.Close()

			puts, dels := copyEntries(src.Entries(), dst)
			if err := dst.Commit(); err != nil {
				return err
			}
			a.log.Info("pushed", zap.String("slot", slot), zap.Int("written", puts), zap.Int("deleted", dels))
			fmt.Fprintf(cmd.OutOrStdout(), "slot %s: %d written, %d deleted\n", slot, puts, dels)
			return nil
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "save slot (defaults to DATABASE_SLOT)")
	return cmd
}

// copyEntries makes dst hold exactly entries, touching only keys whose value
// differs.
func copyEntries(entries []savedata.Entry, dst savedata.Store) (puts, dels int) {
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.Key] = true
		if v, _, ok := dst.Get(e.Key); ok && v == e.Value {
			continue
		}
		dst.Set(e.Key, e.Value)
		puts++
	}
	if es, ok := dst.(interface{ Entries() []savedata.Entry }); ok {
		for _, e := range es.Entries() {
			if !keep[e.Key] && dst.Delete(e.Key) {
				dels++
			}
		}
	}
	return puts, dels
}
