// Package alerts stores product alert subscriptions and fans ingestion
// events out to subscribed users.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/letscience-intel-server/internal/domain"
)

// Subscription links a user to a product they follow
type Subscription struct {
	ID               int64     `json:"id,omitempty"`
	UserID           int64     `json:"user_id"`
	ProductID        int64     `json:"product_id"`
	AlertNewTrials   bool      `json:"alert_new_trials"`
	AlertNewPatents  bool      `json:"alert_new_patents"`
	AlertNewArticles bool      `json:"alert_new_articles"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewSubscription returns a subscription with every alert kind enabled
func NewSubscription(userID, productID int64) *Subscription {
	return &Subscription{
		UserID:           userID,
		ProductID:        productID,
		AlertNewTrials:   true,
		AlertNewPatents:  true,
		AlertNewArticles: true,
	}
}

// Wants reports whether the subscriber asked for records of a kind.
// Conferences are always delivered.
func (s *Subscription) Wants(kind domain.SourceType) bool {
	switch kind {
	case domain.SourceClinicalTrial:
		return s.AlertNewTrials
	case domain.SourcePatent:
		return s.AlertNewPatents
	case domain.SourceArticle:
		return s.AlertNewArticles
	}
	return true
}

// Store defines the interface for subscription storage operations.
type Store interface {
	// Subscribe stores a subscription. Subscribing twice is not an error;
	// created reports whether the subscription is new.
	Subscribe(ctx context.Context, sub *Subscription) (created bool, err error)

	// Unsubscribe removes a subscription and reports whether one existed.
	Unsubscribe(ctx context.Context, userID, productID int64) (bool, error)

	IsSubscribed(ctx context.Context, userID, productID int64) (bool, error)

	// ListByUser returns the subscriptions of a user, oldest first.
	ListByUser(ctx context.Context, userID int64) ([]*Subscription, error)

	// Subscribers returns the subscriptions on a product.
	Subscribers(ctx context.Context, productID int64) ([]*Subscription, error)

	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every subscription to w.
	ExportJSON(ctx context.Context, w io.Writer) error

	// ImportJSON reads an export and subscribes each entry.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error)

	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version       string          `json:"version"`
	ExportedAt    time.Time       `json:"exported_at"`
	Count         int             `json:"count"`
	Subscriptions []*Subscription `json:"subscriptions"`
}

const exportVersion = "1.0"

func writeExport(w io.Writer, subs []*Subscription) error {
	if subs == nil {
		subs = []*Subscription{}
	}
	export := &Export{
		Version:       exportVersion,
		ExportedAt:    time.Now().UTC(),
		Count:         len(subs),
		Subscriptions: subs,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importExport subscribes every entry of an export through store
func importExport(ctx context.Context, store Store, r io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, sub := range export.Subscriptions {
		if sub.UserID <= 0 || sub.ProductID <= 0 {
			skipped++
			continue
		}
		sub.ID = 0
		created, err := store.Subscribe(ctx, sub)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to import subscription %d/%d: %w", sub.UserID, sub.ProductID, err)
		}
		if created {
			imported++
		} else {
			skipped++
		}
	}
	return imported, skipped, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(s scanner) (*Subscription, error) {
	sub := &Subscription{}
	err := s.Scan(
		&sub.ID, &sub.UserID, &sub.ProductID,
		&sub.AlertNewTrials, &sub.AlertNewPatents, &sub.AlertNewArticles,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

const subscriptionColumns = `id, user_id, product_id, alert_new_trials, alert_new_patents, alert_new_articles, created_at`
