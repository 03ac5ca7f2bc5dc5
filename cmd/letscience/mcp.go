package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/setup"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Register the MCP server with Claude Desktop",
	// The MCP server is configured through its own environment, so the
	// server configuration is not loaded here.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var mcpSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Add the letscience-mcp server to the Claude Desktop configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := clientConfigPath(cmd)
		if err != nil {
			return err
		}

		opts := setup.Options{}
		opts.BinaryPath, _ = cmd.Flags().GetString("binary")
		opts.DataDir, _ = cmd.Flags().GetString("data-dir")
		opts.CatalogFile, _ = cmd.Flags().GetString("catalog")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")

		server, err := setup.Configure(path, opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configured %q in %s\n", setup.ServerName, path)
		fmt.Fprintf(out, "  command: %s\n", server.Command)
		fmt.Fprintln(out, "Restart Claude Desktop to load the server.")
		return nil
	},
}

var mcpStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the MCP server is registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := clientConfigPath(cmd)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(setup.GetStatus(path))
	},
}

var mcpRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the MCP server from the Claude Desktop configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := clientConfigPath(cmd)
		if err != nil {
			return err
		}
		removed, err := setup.Remove(path)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to remove")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %s\n", setup.ServerName, path)
		return nil
	},
}

func clientConfigPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("client-config"); path != "" {
		return path, nil
	}
	return setup.GetClaudeDesktopConfigPath()
}

func init() {
	mcpCmd.PersistentFlags().String("client-config", "", "Claude Desktop config file (default: platform location)")

	mcpSetupCmd.Flags().String("binary", "", "path to the letscience-mcp binary (default: search PATH and ./bin)")
	mcpSetupCmd.Flags().String("data-dir", "", "data directory passed as LETSCIENCE_DATA_DIR")
	mcpSetupCmd.Flags().String("catalog", "", "catalog file passed as LETSCIENCE_CATALOG_FILE")
	mcpSetupCmd.Flags().String("log-level", "", "log level passed as LETSCIENCE_LOG_LEVEL")

	mcpCmd.AddCommand(mcpSetupCmd, mcpStatusCmd, mcpRemoveCmd)
	rootCmd.AddCommand(mcpCmd)
}
