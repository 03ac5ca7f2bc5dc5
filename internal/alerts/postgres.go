package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"

	"github.com/letscience-intel-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL subscription store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL subscription store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Subscribe stores a subscription unless the pair already exists
func (s *PostgresStore) Subscribe(ctx context.Context, sub *Subscription) (bool, error) {
	query := `
		INSERT INTO alert_subscriptions (
			user_id, product_id, alert_new_trials, alert_new_patents, alert_new_articles
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id) DO NOTHING
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sub.UserID,
		sub.ProductID,
		sub.AlertNewTrials,
		sub.AlertNewPatents,
		sub.AlertNewArticles,
	).Scan(&sub.ID, &sub.CreatedAt)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := s.get(ctx, sub.UserID, sub.ProductID)
		if err != nil {
			return false, err
		}
		*sub = *existing
		return false, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return false, fmt.Errorf("subscription references unknown user or product: %w", domain.ErrNotFound)
	}
	return false, fmt.Errorf("failed to save subscription: %w", err)
}

func (s *PostgresStore) get(ctx context.Context, userID, productID int64) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes a subscription
func (s *PostgresStore) Unsubscribe(ctx context.Context, userID, productID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM alert_subscriptions WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// IsSubscribed reports whether the user follows the product
func (s *PostgresStore) IsSubscribed(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM alert_subscriptions WHERE user_id = $1 AND product_id = $2)",
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return exists, nil
}

// ListByUser returns the subscriptions of a user
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]*Subscription, error) {
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE user_id = $1 ORDER BY id`, userID)
}

// Subscribers returns the subscriptions on a product
func (s *PostgresStore) Subscribers(ctx context.Context, productID int64) ([]*Subscription, error) {
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE product_id = $1 ORDER BY id`, productID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...interface{}) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	result := []*Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// Count returns the total number of subscriptions.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_subscriptions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// ExportJSON exports all subscriptions to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions ORDER BY id`)
	if err != nil {
		return err
	}
	return writeExport(w, all)
}

// ImportJSON imports subscriptions from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return importExport(ctx, s, r)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
