package memory

import (
	"context"
	"sort"

	"github.com/letscience-intel-server/internal/domain"
)

// AddSideEffect records a side effect once per product
func (s *Store) AddSideEffect(_ context.Context, productID int64, effect string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(productID); err != nil {
		return false, err
	}
	for _, e := range s.sideEffects[productID] {
		if e == effect {
			return false, nil
		}
	}
	s.sideEffects[productID] = append(s.sideEffects[productID], effect)
	return true, nil
}

// ListSideEffects returns the side effects of a product in alphabetical order
func (s *Store) ListSideEffects(_ context.Context, productID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]string{}, s.sideEffects[productID]...)
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddPharmacodynamics(_ context.Context, pd *domain.Pharmacodynamics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(pd.ProductID); err != nil {
		return err
	}
	pd.ID = s.id()
	cp := *pd
	s.pds[pd.ProductID] = append(s.pds[pd.ProductID], &cp)
	return nil
}

func (s *Store) ListPharmacodynamics(_ context.Context, productID int64) ([]*domain.Pharmacodynamics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.pds[productID]), nil
}

func (s *Store) AddMilestone(_ context.Context, m *domain.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(m.ProductID); err != nil {
		return err
	}
	m.ID = s.id()
	cp := *m
	s.milestones[m.ProductID] = append(s.milestones[m.ProductID], &cp)
	return nil
}

// ListMilestones returns milestones in date order
func (s *Store) ListMilestones(_ context.Context, productID int64) ([]*domain.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyAll(s.milestones[productID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) AddIndication(_ context.Context, ind *domain.Indication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(ind.ProductID); err != nil {
		return err
	}
	ind.ID = s.id()
	cp := *ind
	s.indications[ind.ProductID] = append(s.indications[ind.ProductID], &cp)
	return nil
}

func (s *Store) ListIndications(_ context.Context, productID int64) ([]*domain.Indication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.indications[productID]), nil
}

func (s *Store) AddSynthesisStep(_ context.Context, productID int64, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(productID); err != nil {
		return err
	}
	s.steps[productID] = append(s.steps[productID], step)
	return nil
}

func (s *Store) ListSynthesisSteps(_ context.Context, productID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.steps[productID]...), nil
}

func (s *Store) AddSynthesisScheme(_ context.Context, scheme *domain.SynthesisScheme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(scheme.ProductID); err != nil {
		return err
	}
	scheme.ID = s.id()
	cp := *scheme
	s.schemes[scheme.ProductID] = append(s.schemes[scheme.ProductID], &cp)
	return nil
}

func (s *Store) ListSynthesisSchemes(_ context.Context, productID int64) ([]*domain.SynthesisScheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.schemes[productID]), nil
}

// copyAll returns shallow copies so callers cannot mutate stored rows
func copyAll[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		cp := *v
		out = append(out, &cp)
	}
	return out
}
