// Package main is the operator CLI: migrations, catalog seeding, ingestion,
// alert subscription backups and MCP client registration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/app"
	"github.com/letscience-intel-server/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configManager *config.Manager
	logger        *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:     "letscience",
	Short:   "Operate the LetScience intelligence server",
	Version: version,
	Long: `letscience runs the maintenance tasks of the intelligence server:
database migrations, seeding the curated catalog, ingesting literature,
trials and patents for stored products, backing up alert subscriptions and
registering the MCP server with desktop clients.

Configuration is read from config.yaml and LETSCIENCE_* environment
variables, the same way the server reads it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("config-dir")
		var paths []string
		if dir != "" {
			paths = append(paths, dir)
		}

		var err error
		if configManager, err = config.NewManager(paths...); err != nil {
			return err
		}
		if err := configManager.Validate(); err != nil {
			return err
		}

		logging := configManager.GetConfig().Logging
		logging.Output = "stderr"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logging.Level = "debug"
		}
		logger, err = config.NewLogger(logging)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", "", "directory holding config.yaml (searched before ./ and ./config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// openApp connects to every configured store
func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, configManager.GetConfig(), configManager.GetDatabaseURL(), logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
