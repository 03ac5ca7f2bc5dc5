package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

const userColumns = `id, username, email, password_hash, totp_secret, is_2fa_enabled,
		is_active, is_admin, created_at, last_login`

// UserRepository persists platform accounts
type UserRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: logger,
	}
}

// conflictError names the unique column a write collided with
func conflictError(err error) error {
	field := "user"
	switch c := constraintName(err); {
	case strings.Contains(c, "username"):
		field = "username"
	case strings.Contains(c, "email"):
		field = "email"
	}
	return fmt.Errorf("%s already exists: %w", field, domain.ErrConflict)
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			username, email, password_hash, totp_secret, is_2fa_enabled, is_active, is_admin
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.TOTPSecret,
		user.Is2FAEnabled,
		user.IsActive,
		user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return conflictError(err)
		}
		r.log.WithFields(logrus.Fields{
			"username": user.Username,
			"error":    err,
		}).Error("Failed to create user")
		return fmt.Errorf("creating user: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User created successfully")

	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `username = $1`, username)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.TOTPSecret,
		&u.Is2FAEnabled,
		&u.IsActive,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"lookup": where,
			"error":  err,
		}).Error("Failed to get user")
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// Update writes back the mutable fields of a user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET
			email = $2, password_hash = $3, totp_secret = $4, is_2fa_enabled = $5,
			is_active = $6, is_admin = $7, last_login = $8
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.TOTPSecret,
		user.Is2FAEnabled,
		user.IsActive,
		user.IsAdmin,
		user.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return conflictError(err)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err,
		}).Error("Failed to update user")
		return fmt.Errorf("updating user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}
