package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	savedata "github.com/hnb-rabear/RCore-sub006"
	"github.com/hnb-rabear/RCore-sub006/config"
	"github.com/hnb-rabear/RCore-sub006/journal"
	"github.com/hnb-rabear/RCore-sub006/logging"
)

// app is the state shared by subcommands once the root pre-run has loaded
// configuration.
type app struct {
	configDir string
	storePath string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "savectl",
		Short: "Save file maintenance",
		Long: `savectl inspects and maintains hierarchical save files.
It dumps and compacts bolt saves, backs them up to S3-compatible storage
and pushes them to MySQL save slots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configDir)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if a.storePath != "" {
				cfg.Store.Path = a.storePath
			}
			log, err := logging.New(&cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "directory holding the .env file")
	root.PersistentFlags().StringVar(&a.storePath, "store", "", "bolt save file (overrides STORE_PATH)")

	root.AddCommand(
		newDumpCmd(a),
		newCompactCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newPushCmd(a),
		newReplayCmd(a),
	)
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		l, logErr := logging.New(&logging.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

// openDB opens the configured bolt save file. Writable stores are
// journaled when a journal directory is configured.
func (a *app) openDB(readOnly bool) (*savedata.DB, error) {
	opt, err := a.cfg.Store.Options(a.log)
	if err != nil {
		return nil, err
	}
	bolt, err := savedata.OpenBolt(a.cfg.Store.Path, a.cfg.Store.BoltOptions(readOnly))
	if err != nil {
		return nil, err
	}
	var store savedata.Store = bolt
	if !readOnly && a.cfg.Store.Journal != "" {
		j, err := journal.Open(a.cfg.Store.Journal, a.cfg.Store.JournalOptions(a.log))
		if err != nil {
			bolt.Close()
			return nil, err
		}
		store = savedata.NewJournaledStore(bolt, j)
	}
	return savedata.New(store, opt), nil
}
