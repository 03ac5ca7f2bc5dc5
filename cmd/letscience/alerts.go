package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/app"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Back up and restore alert subscriptions",
}

var alertsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every subscription to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := alertStore()
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		if err := store.ExportJSON(cmd.Context(), f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		count, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d subscriptions to %s\n", count, args[0])
		return nil
	},
}

var alertsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore subscriptions from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening export file: %w", err)
		}
		defer f.Close()

		store, err := alertStore()
		if err != nil {
			return err
		}
		defer store.Close()

		imported, skipped, err := store.ImportJSON(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d subscriptions (%d skipped)\n", imported, skipped)
		return nil
	},
}

// alertStore opens only the subscription backend, so backups of a SQLite
// store work without PostgreSQL.
func alertStore() (alerts.Store, error) {
	return app.OpenAlertStore(configManager.GetConfig().Alerts, configManager.GetDatabaseURL())
}

func init() {
	alertsCmd.AddCommand(alertsExportCmd, alertsImportCmd)
	rootCmd.AddCommand(alertsCmd)
}
