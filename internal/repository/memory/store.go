// Package memory provides in-process implementations of the domain stores.
// They follow the PostgreSQL repositories' ordering, uniqueness and
// not-found semantics and back the standalone MCP server and unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/letscience-intel-server/internal/domain"
)

// Store keeps the catalog, intelligence, interaction and user tables in memory
type Store struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	products     map[int64]*domain.Product
	sideEffects  map[int64][]string
	pds          map[int64][]*domain.Pharmacodynamics
	milestones   map[int64][]*domain.Milestone
	indications  map[int64][]*domain.Indication
	steps        map[int64][]string
	schemes      map[int64][]*domain.SynthesisScheme
	patents      map[int64][]*domain.Patent
	articles     map[int64][]*domain.Article
	trials       map[int64][]*domain.Trial
	conferences  map[int64][]*domain.Conference
	interactions map[int64]*domain.DrugInteraction
	users        map[int64]*domain.User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		products:     make(map[int64]*domain.Product),
		sideEffects:  make(map[int64][]string),
		pds:          make(map[int64][]*domain.Pharmacodynamics),
		milestones:   make(map[int64][]*domain.Milestone),
		indications:  make(map[int64][]*domain.Indication),
		steps:        make(map[int64][]string),
		schemes:      make(map[int64][]*domain.SynthesisScheme),
		patents:      make(map[int64][]*domain.Patent),
		articles:     make(map[int64][]*domain.Article),
		trials:       make(map[int64][]*domain.Trial),
		conferences:  make(map[int64][]*domain.Conference),
		interactions: make(map[int64]*domain.DrugInteraction),
		users:        make(map[int64]*domain.User),
	}
}

// Products returns the product view of the store
func (s *Store) Products() domain.ProductStore { return productStore{s} }

// Details returns the product detail view of the store
func (s *Store) Details() domain.ProductDetailStore { return s }

// Intelligence returns the intelligence view of the store
func (s *Store) Intelligence() domain.IntelligenceStore { return s }

// Interactions returns the interaction view of the store
func (s *Store) Interactions() domain.InteractionStore { return interactionStore{s} }

// Users returns the user view of the store
func (s *Store) Users() domain.UserStore { return userStore{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func productNotFound() error {
	return fmt.Errorf("product not found: %w", domain.ErrNotFound)
}

// requireProduct must be called with s.mu held
func (s *Store) requireProduct(id int64) error {
	if _, ok := s.products[id]; !ok {
		return productNotFound()
	}
	return nil
}

type productStore struct{ s *Store }

func (p productStore) Create(_ context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.Name == product.Name {
			return fmt.Errorf("product %s already exists: %w", product.Name, domain.ErrConflict)
		}
	}
	product.ID = s.id()
	product.CreatedAt = s.now()
	product.UpdatedAt = product.CreatedAt
	cp := *product
	s.products[cp.ID] = &cp
	return nil
}

func (p productStore) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	product, ok := p.s.products[id]
	if !ok {
		return nil, productNotFound()
	}
	cp := *product
	return &cp, nil
}

func (p productStore) GetByName(_ context.Context, name string) (*domain.Product, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	for _, product := range p.s.products {
		if strings.EqualFold(product.Name, name) {
			cp := *product
			return &cp, nil
		}
	}
	return nil, productNotFound()
}

func (p productStore) List(_ context.Context, limit, offset int) ([]*domain.Product, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	all := make([]*domain.Product, 0, len(p.s.products))
	for _, product := range p.s.products {
		cp := *product
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset >= len(all) {
		return []*domain.Product{}, nil
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (p productStore) Update(_ context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return productNotFound()
	}
	for id, existing := range s.products {
		if id != product.ID && existing.Name == product.Name {
			return fmt.Errorf("product %s already exists: %w", product.Name, domain.ErrConflict)
		}
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = s.now()
	cp := *product
	s.products[cp.ID] = &cp
	return nil
}

func (p productStore) Delete(_ context.Context, id int64) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return productNotFound()
	}
	delete(s.products, id)
	delete(s.sideEffects, id)
	delete(s.pds, id)
	delete(s.milestones, id)
	delete(s.indications, id)
	delete(s.steps, id)
	delete(s.schemes, id)
	delete(s.patents, id)
	delete(s.articles, id)
	delete(s.trials, id)
	delete(s.conferences, id)
	for iid, in := range s.interactions {
		if in.DrugAID == id || in.DrugBID == id {
			delete(s.interactions, iid)
		}
	}
	return nil
}
