package cmd

import (
	"errors"

	"github.com/LovationAdmin/expensewise-api/config"

	"github.com/spf13/cobra"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePostgres(); err != nil {
			return err
		}
		if err := config.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePostgres(); err != nil {
			return err
		}
		if rollbackSteps < 1 {
			return errors.New("--steps must be at least 1")
		}
		if err := config.RollbackMigrations(cfg.DatabaseURL, rollbackSteps); err != nil {
			return err
		}
		log.WithField("steps", rollbackSteps).Info("Migrations rolled back")
		return nil
	},
}

func requirePostgres() error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
