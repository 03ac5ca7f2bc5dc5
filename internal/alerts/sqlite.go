package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite subscription store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while the ingester writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS alert_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		alert_new_trials INTEGER NOT NULL DEFAULT 1,
		alert_new_patents INTEGER NOT NULL DEFAULT 1,
		alert_new_articles INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, product_id)
	);

	CREATE INDEX IF NOT EXISTS idx_alert_subscriptions_product ON alert_subscriptions(product_id);
	`

	_, err := db.Exec(schema)
	return err
}

// Subscribe stores a subscription unless the pair already exists
func (s *SQLiteStore) Subscribe(ctx context.Context, sub *Subscription) (bool, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_subscriptions (
			user_id, product_id, alert_new_trials, alert_new_patents, alert_new_articles, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`,
		sub.UserID,
		sub.ProductID,
		sub.AlertNewTrials,
		sub.AlertNewPatents,
		sub.AlertNewArticles,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := s.get(ctx, sub.UserID, sub.ProductID)
		if err != nil {
			return false, err
		}
		*sub = *existing
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get insert ID: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = now
	return true, nil
}

func (s *SQLiteStore) get(ctx context.Context, userID, productID int64) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE user_id = ? AND product_id = ?`,
		userID, productID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes a subscription
func (s *SQLiteStore) Unsubscribe(ctx context.Context, userID, productID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM alert_subscriptions WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to delete: %w", err)
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// IsSubscribed reports whether the user follows the product
func (s *SQLiteStore) IsSubscribed(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM alert_subscriptions WHERE user_id = ? AND product_id = ?)",
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return exists, nil
}

// ListByUser returns the subscriptions of a user
func (s *SQLiteStore) ListByUser(ctx context.Context, userID int64) ([]*Subscription, error) {
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE user_id = ? ORDER BY id`, userID)
}

// Subscribers returns the subscriptions on a product
func (s *SQLiteStore) Subscribers(ctx context.Context, productID int64) ([]*Subscription, error) {
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE product_id = ? ORDER BY id`, productID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...interface{}) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_subscriptions").Scan(&count)
	return count, err
}

// ExportJSON exports all subscriptions to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.list(ctx, `SELECT `+subscriptionColumns+` FROM alert_subscriptions ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return writeExport(w, all)
}

// ImportJSON imports subscriptions from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return importExport(ctx, s, r)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
