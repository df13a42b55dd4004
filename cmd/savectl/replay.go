package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	savedata "github.com/hnb-rabear/RCore-sub006"
)

func newReplayCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the save file from the commit journal",
		Long: `Applies every change set recorded in the commit journal to the save
file. Run it against a new path to rebuild a lost save.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Store.Journal
			}
			if dir == "" {
				return fmt.Errorf("no journal directory: pass --journal or set STORE_JOURNAL")
			}
			store, err := savedata.OpenBolt(a.cfg.Store.Path, a.cfg.Store.BoltOptions(false))
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := savedata.ReplayJournal(dir, a.cfg.Store.JournalOptions(a.log), store)
			if err != nil {
				return err
			}
			a.log.Info("replayed journal", zap.String("journal", dir), zap.String("path", a.cfg.Store.Path), zap.Int("commits", n))
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d change sets, %d entries\n", n, store.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "journal", "", "journal directory (defaults to STORE_JOURNAL)")
	return cmd
}
