package memory

import (
	"context"
	"sort"
	"time"

	"github.com/letscience-intel-server/internal/domain"
)

// UpsertPatent inserts or refreshes a patent keyed by product and source id
func (s *Store) UpsertPatent(_ context.Context, p *domain.Patent) (bool, error) {
	if p.SourceID == "" {
		return false, domain.NewValidationError("source_id", "is required", p.SourceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(p.ProductID); err != nil {
		return false, err
	}
	for i, existing := range s.patents[p.ProductID] {
		if existing.SourceID == p.SourceID {
			p.ID = existing.ID
			cp := *p
			s.patents[p.ProductID][i] = &cp
			return false, nil
		}
	}
	p.ID = s.id()
	cp := *p
	s.patents[p.ProductID] = append(s.patents[p.ProductID], &cp)
	return true, nil
}

// UpsertArticle inserts or refreshes an article keyed by product and source id
func (s *Store) UpsertArticle(_ context.Context, a *domain.Article) (bool, error) {
	if a.SourceID == "" {
		return false, domain.NewValidationError("source_id", "is required", a.SourceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(a.ProductID); err != nil {
		return false, err
	}
	for i, existing := range s.articles[a.ProductID] {
		if existing.SourceID == a.SourceID {
			a.ID = existing.ID
			cp := *a
			s.articles[a.ProductID][i] = &cp
			return false, nil
		}
	}
	a.ID = s.id()
	cp := *a
	s.articles[a.ProductID] = append(s.articles[a.ProductID], &cp)
	return true, nil
}

// UpsertTrial inserts or refreshes a trial keyed by product and NCT id
func (s *Store) UpsertTrial(_ context.Context, t *domain.Trial) (bool, error) {
	if t.NCTID == "" {
		return false, domain.NewValidationError("nct_id", "is required", t.NCTID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(t.ProductID); err != nil {
		return false, err
	}
	if t.Conditions == nil {
		t.Conditions = []string{}
	}
	for i, existing := range s.trials[t.ProductID] {
		if existing.NCTID == t.NCTID {
			t.ID = existing.ID
			cp := *t
			s.trials[t.ProductID][i] = &cp
			return false, nil
		}
	}
	t.ID = s.id()
	cp := *t
	s.trials[t.ProductID] = append(s.trials[t.ProductID], &cp)
	return true, nil
}

func (s *Store) AddConference(_ context.Context, c *domain.Conference) error {
	if c.Title == "" {
		return domain.NewValidationError("title", "is required", c.Title)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProduct(c.ProductID); err != nil {
		return err
	}
	c.ID = s.id()
	cp := *c
	s.conferences[c.ProductID] = append(s.conferences[c.ProductID], &cp)
	return nil
}

func (s *Store) ListPatents(_ context.Context, productID int64) ([]*domain.Patent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyAll(s.patents[productID])
	sortNewestFirst(out, func(p *domain.Patent) (*time.Time, int64) { return p.PublicationDate, p.ID })
	return out, nil
}

func (s *Store) ListArticles(_ context.Context, productID int64) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyAll(s.articles[productID])
	sortNewestFirst(out, func(a *domain.Article) (*time.Time, int64) { return a.PublicationDate, a.ID })
	return out, nil
}

func (s *Store) ListTrials(_ context.Context, productID int64) ([]*domain.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyAll(s.trials[productID])
	sortNewestFirst(out, func(t *domain.Trial) (*time.Time, int64) { return t.StartDate, t.ID })
	return out, nil
}

func (s *Store) ListConferences(_ context.Context, productID int64) ([]*domain.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyAll(s.conferences[productID])
	sortNewestFirst(out, func(c *domain.Conference) (*time.Time, int64) { return c.Date, c.ID })
	return out, nil
}

// sortNewestFirst orders rows by date descending with undated rows last,
// then by id.
func sortNewestFirst[T any](rows []*T, key func(*T) (*time.Time, int64)) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, idI := key(rows[i])
		dj, idJ := key(rows[j])
		switch {
		case di == nil && dj == nil:
			return idI < idJ
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.After(*dj)
		}
		return idI < idJ
	})
}
