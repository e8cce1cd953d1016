package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/store"
)

var migrateSkipSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and seed the scoring framework",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("migrate: schema up to date", zap.String("driver", cfg.Store.Driver))

		if migrateSkipSeed {
			return nil
		}

		framework, err := store.DefaultFramework()
		if err != nil {
			return err
		}
		if err := st.SeedFramework(ctx, framework); err != nil {
			return err
		}
		zap.L().Info("migrate: framework seeded", zap.Int("categories", len(framework)))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSkipSeed, "skip-seed", false, "skip seeding the default scoring framework")
	rootCmd.AddCommand(migrateCmd)
}
