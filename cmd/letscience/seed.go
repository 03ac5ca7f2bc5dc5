package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the curated product catalog into the database",
	Long: `Seed writes the curated catalog (products, targets, mechanisms, side
effects, indications and known interactions) into the database. Existing
products keep their rows, so seeding is safe to repeat.

Without --catalog the built-in catalog is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.Default()
		if path, _ := cmd.Flags().GetString("catalog"); path != "" {
			loaded, err := catalog.Load(path)
			if err != nil {
				return err
			}
			cat = loaded
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := catalog.Seed(cmd.Context(), cat, catalog.Stores{
			Products:     a.Products,
			Details:      a.Products,
			Interactions: a.Interactions,
		}, logger)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	seedCmd.Flags().String("catalog", "", "YAML catalog file")
	rootCmd.AddCommand(seedCmd)
}
