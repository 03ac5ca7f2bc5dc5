package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/domain"
)

// CombinationService scores stored products against each other
type CombinationService struct {
	logger       *logrus.Logger
	products     domain.ProductStore
	details      domain.ProductDetailStore
	interactions domain.InteractionStore
	scorer       *analysis.InteractionScorer
}

// NewCombinationService creates a new combination service
func NewCombinationService(
	logger *logrus.Logger,
	products domain.ProductStore,
	details domain.ProductDetailStore,
	interactions domain.InteractionStore,
	scorer *analysis.InteractionScorer,
) *CombinationService {
	if scorer == nil {
		scorer = analysis.NewInteractionScorer(nil)
	}
	return &CombinationService{
		logger:       logger,
		products:     products,
		details:      details,
		interactions: interactions,
		scorer:       scorer,
	}
}

// Analyze loads two products with their targets, side effects and any curated
// interaction between them and scores the combination.
func (s *CombinationService) Analyze(ctx context.Context, drugAID, drugBID int64) (*domain.CombinationResult, error) {
	var profileA, profileB *domain.DrugProfile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profileA, err = s.Profile(gctx, drugAID)
		return err
	})
	g.Go(func() error {
		var err error
		profileB, err = s.Profile(gctx, drugBID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	known, err := s.knownInteraction(ctx, drugAID, drugBID)
	if err != nil {
		return nil, err
	}

	result := s.scorer.Score(*profileA, *profileB, known)

	s.logger.WithFields(logrus.Fields{
		"drug_a":           profileA.Name,
		"drug_b":           profileB.Name,
		"synergy_score":    result.SynergyScore,
		"interaction_type": result.InteractionType,
	}).Info("Combination analyzed")

	return result, nil
}

// AnalyzeProfiles scores two ad-hoc drug profiles without touching storage
func (s *CombinationService) AnalyzeProfiles(a, b domain.DrugProfile, known *domain.KnownInteraction) *domain.CombinationResult {
	return s.scorer.Score(a, b, known)
}

// Profile assembles the scoring profile of a stored product. Targets come
// from its pharmacodynamic records.
func (s *CombinationService) Profile(ctx context.Context, productID int64) (*domain.DrugProfile, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading product %d: %w", productID, err)
	}

	pds, err := s.details.ListPharmacodynamics(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading targets of %s: %w", product.Name, err)
	}

	sideEffects, err := s.details.ListSideEffects(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading side effects of %s: %w", product.Name, err)
	}

	targets := make([]string, 0, len(pds))
	for _, pd := range pds {
		if pd.Target != "" {
			targets = append(targets, pd.Target)
		}
	}

	return &domain.DrugProfile{
		Name:        product.Name,
		Indication:  product.TargetIndication,
		Description: product.Description,
		Targets:     targets,
		SideEffects: sideEffects,
	}, nil
}

func (s *CombinationService) knownInteraction(ctx context.Context, a, b int64) (*domain.KnownInteraction, error) {
	interaction, err := s.interactions.FindBetween(ctx, a, b)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading known interaction: %w", err)
	}
	return &domain.KnownInteraction{
		Type:              interaction.InteractionType,
		EffectDescription: interaction.EffectDescription,
		Severity:          interaction.Severity,
	}, nil
}
