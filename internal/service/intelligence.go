package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/letscience-intel-server/internal/domain"
)

// IntelligenceService assembles the unified intelligence view of a product
type IntelligenceService struct {
	logger   *logrus.Logger
	products domain.ProductStore
	details  domain.ProductDetailStore
	intel    domain.IntelligenceStore
}

// NewIntelligenceService creates a new intelligence service
func NewIntelligenceService(
	logger *logrus.Logger,
	products domain.ProductStore,
	details domain.ProductDetailStore,
	intel domain.IntelligenceStore,
) *IntelligenceService {
	return &IntelligenceService{
		logger:   logger,
		products: products,
		details:  details,
		intel:    intel,
	}
}

// ProductIntelligence loads a product and every linked record concurrently
func (s *IntelligenceService) ProductIntelligence(ctx context.Context, productID int64) (*domain.ProductIntelligence, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading product %d: %w", productID, err)
	}

	view := &domain.ProductIntelligence{Product: product}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		view.Patents, err = s.intel.ListPatents(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Articles, err = s.intel.ListArticles(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Trials, err = s.intel.ListTrials(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Conferences, err = s.intel.ListConferences(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.SideEffects, err = s.details.ListSideEffects(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.SynthesisSteps, err = s.details.ListSynthesisSteps(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Milestones, err = s.details.ListMilestones(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Indications, err = s.details.ListIndications(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.SynthesisSchemes, err = s.details.ListSynthesisSchemes(gctx, productID)
		return err
	})
	g.Go(func() (err error) {
		view.Pharmacodynamics, err = s.details.ListPharmacodynamics(gctx, productID)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"error":      err,
		}).Error("Failed to assemble product intelligence")
		return nil, fmt.Errorf("loading intelligence for %s: %w", product.Name, err)
	}

	view.Summary = domain.IntelligenceSummary{
		TotalPatents:  len(view.Patents),
		TotalArticles: len(view.Articles),
		TotalTrials:   len(view.Trials),
		LatestPhase:   product.DevelopmentPhase,
	}
	return view, nil
}
