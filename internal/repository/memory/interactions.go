package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

type interactionStore struct{ s *Store }

func orderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r interactionStore) Create(_ context.Context, interaction *domain.DrugInteraction) error {
	if err := interaction.Validate(); err != nil {
		return err
	}
	interaction.DrugAID, interaction.DrugBID = orderedPair(interaction.DrugAID, interaction.DrugBID)

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.products[interaction.DrugAID] == nil || s.products[interaction.DrugBID] == nil {
		return fmt.Errorf("interaction references unknown product: %w", domain.ErrNotFound)
	}
	for _, existing := range s.interactions {
		if existing.DrugAID == interaction.DrugAID && existing.DrugBID == interaction.DrugBID {
			return fmt.Errorf("interaction between %d and %d already exists: %w",
				interaction.DrugAID, interaction.DrugBID, domain.ErrConflict)
		}
	}
	interaction.ID = s.id()
	interaction.CreatedAt = s.now()
	cp := *interaction
	s.interactions[cp.ID] = &cp
	return nil
}

func (r interactionStore) FindBetween(_ context.Context, drugAID, drugBID int64) (*domain.DrugInteraction, error) {
	a, b := orderedPair(drugAID, drugBID)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, in := range r.s.interactions {
		if in.DrugAID == a && in.DrugBID == b {
			cp := *in
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("interaction not found: %w", domain.ErrNotFound)
}

func (r interactionStore) ListForProduct(_ context.Context, productID int64) ([]*domain.DrugInteraction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.DrugInteraction{}
	for _, in := range r.s.interactions {
		if in.DrugAID == productID || in.DrugBID == productID {
			cp := *in
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r interactionStore) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.interactions[id]; !ok {
		return fmt.Errorf("interaction not found: %w", domain.ErrNotFound)
	}
	delete(r.s.interactions, id)
	return nil
}

type userStore struct{ s *Store }

func (r userStore) Create(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(user); err != nil {
		return err
	}
	user.ID = s.id()
	user.CreatedAt = s.now()
	cp := *user
	s.users[cp.ID] = &cp
	return nil
}

// checkUnique must be called with s.mu held
func (s *Store) checkUnique(user *domain.User) error {
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if existing.Username == user.Username {
			return fmt.Errorf("username already exists: %w", domain.ErrConflict)
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("email already exists: %w", domain.ErrConflict)
		}
	}
	return nil
}

func (r userStore) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r userStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r userStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r userStore) Update(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	cp := *user
	cp.Username = current.Username
	cp.CreatedAt = current.CreatedAt
	s.users[cp.ID] = &cp
	return nil
}
