package main

import (
	"time"

	"github.com/spf13/cobra"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

// newRootCmd returns the migrate command tree.
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Schema setup and backfill jobs for the ELI dashboard backends",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.LoadConfig()
			util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
		},
	}
	loaded := func() *config.Config { return cfg }

	root.AddCommand(
		newPGSchemaCmd(loaded),
		newGraphSchemaCmd(loaded),
		newGraphSyncCmd(loaded),
		newIndexEventsCmd(loaded),
		newAuditSchemaCmd(loaded),
		newHashPasswordCmd(loaded),
	)
	return root
}

// copyFlags are shared by the jobs that page through Postgres.
type copyFlags struct {
	since time.Duration
	batch int
}

func (f *copyFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.since, "since", 7*24*time.Hour, "copy rows whose event started within this duration")
	cmd.Flags().IntVar(&f.batch, "batch", 500, "rows per batch")
}

func (f *copyFlags) start() int64 {
	return time.Now().Add(-f.since).UnixMilli()
}

func done(command string) {
	util.Info("Migration completed", util.String("command", command))
}
