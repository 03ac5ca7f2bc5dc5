package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := migrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()
		return runner.Up(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := migrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()
		return runner.Down(cmd.Context())
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := migrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()

		v, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
		return nil
	},
}

func migrationRunner() (*database.MigrationRunner, error) {
	cfg := configManager.GetConfig()
	return database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
