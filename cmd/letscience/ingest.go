package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch literature, trials, patents and labels for stored products",
	Long: `Ingest queries PubMed, ClinicalTrials.gov, PubChem and openFDA for one
product (--product) or every stored product (--all) and stores the new
records. A failing source is reported and does not stop the run.

Websocket alerts are delivered by the server only; runs started here do
not notify subscribers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("product")
		all, _ := cmd.Flags().GetBool("all")
		if (name == "") == !all {
			return errors.New("exactly one of --product or --all is required")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pipeline := a.Pipeline(nil)

		var reports []*ingest.Report
		if all {
			reports, err = pipeline.IngestAll(cmd.Context())
		} else {
			var product *domain.Product
			if product, err = a.Products.GetByName(cmd.Context(), name); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("product %q not found", name)
				}
				return err
			}
			var report *ingest.Report
			if report, err = pipeline.IngestProduct(cmd.Context(), product); report != nil {
				reports = append(reports, report)
			}
		}

		for _, r := range reports {
			logger.WithFields(logrus.Fields{
				"product":  r.ProductName,
				"inserted": r.Inserted(),
				"failed":   r.Failed(),
			}).Info("Ingestion finished")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(reports); encErr != nil && err == nil {
			err = encErr
		}
		return err
	},
}

func init() {
	ingestCmd.Flags().String("product", "", "ingest the product with this name")
	ingestCmd.Flags().Bool("all", false, "ingest every stored product")
	rootCmd.AddCommand(ingestCmd)
}
