package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

// Stores groups the stores a catalog is seeded into
type Stores struct {
	Products     domain.ProductStore
	Details      domain.ProductDetailStore
	Interactions domain.InteractionStore
}

// SeedReport counts what a seed run wrote
type SeedReport struct {
	ProductsCreated  int `json:"products_created"`
	ProductsExisting int `json:"products_existing"`
	SideEffects      int `json:"side_effects"`
	Pharmacodynamics int `json:"pharmacodynamics"`
	Indications      int `json:"indications"`
	Interactions     int `json:"interactions"`
}

// Seed writes the catalog into the stores. Products that already exist keep
// their detail rows; side effects and interactions are only added when new,
// so seeding twice is a no-op.
func Seed(ctx context.Context, c *Catalog, stores Stores, logger *logrus.Logger) (*SeedReport, error) {
	report := &SeedReport{}
	ids := make(map[string]int64, len(c.Products))

	for i := range c.Products {
		entry := &c.Products[i]

		existing, err := stores.Products.GetByName(ctx, entry.Name)
		switch {
		case err == nil:
			ids[normalize(entry.Name)] = existing.ID
			report.ProductsExisting++
			if err := seedSideEffects(ctx, stores.Details, existing.ID, entry, report); err != nil {
				return report, err
			}
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return report, fmt.Errorf("looking up %s: %w", entry.Name, err)
		}

		product := entry.Product()
		if err := stores.Products.Create(ctx, product); err != nil {
			return report, fmt.Errorf("creating %s: %w", entry.Name, err)
		}
		ids[normalize(entry.Name)] = product.ID
		report.ProductsCreated++

		if err := seedDetails(ctx, stores.Details, product.ID, entry, report); err != nil {
			return report, err
		}
	}

	for _, in := range c.Interactions {
		interaction := &domain.DrugInteraction{
			DrugAID:           ids[normalize(in.DrugA)],
			DrugBID:           ids[normalize(in.DrugB)],
			InteractionType:   in.Type,
			EffectDescription: in.Effect,
			Severity:          in.Severity,
		}
		if err := stores.Interactions.Create(ctx, interaction); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return report, fmt.Errorf("creating interaction %s/%s: %w", in.DrugA, in.DrugB, err)
		}
		report.Interactions++
	}

	logger.WithFields(logrus.Fields{
		"products_created":  report.ProductsCreated,
		"products_existing": report.ProductsExisting,
		"interactions":      report.Interactions,
	}).Info("Catalog seeded")

	return report, nil
}

func seedSideEffects(ctx context.Context, details domain.ProductDetailStore, productID int64, entry *ProductEntry, report *SeedReport) error {
	for _, effect := range entry.SideEffects {
		added, err := details.AddSideEffect(ctx, productID, effect)
		if err != nil {
			return fmt.Errorf("adding side effect %q to %s: %w", effect, entry.Name, err)
		}
		if added {
			report.SideEffects++
		}
	}
	return nil
}

func seedDetails(ctx context.Context, details domain.ProductDetailStore, productID int64, entry *ProductEntry, report *SeedReport) error {
	if err := seedSideEffects(ctx, details, productID, entry, report); err != nil {
		return err
	}

	for _, target := range entry.Targets {
		pd := &domain.Pharmacodynamics{
			ProductID: productID,
			Parameter: "Primary Target",
			Value:     target,
			Target:    target,
		}
		if err := details.AddPharmacodynamics(ctx, pd); err != nil {
			return fmt.Errorf("adding target %s to %s: %w", target, entry.Name, err)
		}
		report.Pharmacodynamics++
	}
	for _, e := range entry.Pharmacodynamics {
		pd := &domain.Pharmacodynamics{
			ProductID: productID,
			Parameter: e.Parameter,
			Value:     e.Value,
			Unit:      e.Unit,
			Target:    e.Target,
		}
		if err := details.AddPharmacodynamics(ctx, pd); err != nil {
			return fmt.Errorf("adding %s to %s: %w", e.Parameter, entry.Name, err)
		}
		report.Pharmacodynamics++
	}

	for _, e := range entry.Indications {
		indication := &domain.Indication{
			ProductID:      productID,
			DiseaseName:    e.Disease,
			ApprovalStatus: e.Status,
		}
		if err := details.AddIndication(ctx, indication); err != nil {
			return fmt.Errorf("adding indication %s to %s: %w", e.Disease, entry.Name, err)
		}
		report.Indications++
	}
	return nil
}
