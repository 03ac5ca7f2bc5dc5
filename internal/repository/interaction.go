package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

const interactionColumns = `id, drug_a_id, drug_b_id, interaction_type, effect_description, severity, created_at`

// InteractionRepository persists curated drug-drug interactions. Pairs are
// stored with the lower product id first so either order finds the record.
type InteractionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *pgxpool.Pool, logger *logrus.Logger) *InteractionRepository {
	return &InteractionRepository{
		db:  db,
		log: logger,
	}
}

func orderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Create stores an interaction. A second record for the same pair, in any
// order, is a conflict.
func (r *InteractionRepository) Create(ctx context.Context, interaction *domain.DrugInteraction) error {
	if err := interaction.Validate(); err != nil {
		return err
	}
	interaction.DrugAID, interaction.DrugBID = orderedPair(interaction.DrugAID, interaction.DrugBID)

	query := `
		INSERT INTO drug_interactions (
			drug_a_id, drug_b_id, interaction_type, effect_description, severity
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		interaction.DrugAID,
		interaction.DrugBID,
		interaction.InteractionType,
		interaction.EffectDescription,
		interaction.Severity,
	).Scan(&interaction.ID, &interaction.CreatedAt)

	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("interaction between %d and %d already exists: %w",
				interaction.DrugAID, interaction.DrugBID, domain.ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("interaction references unknown product: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"drug_a_id": interaction.DrugAID,
			"drug_b_id": interaction.DrugBID,
			"error":     err,
		}).Error("Failed to create interaction")
		return fmt.Errorf("creating interaction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"interaction_id": interaction.ID,
		"drug_a_id":      interaction.DrugAID,
		"drug_b_id":      interaction.DrugBID,
		"type":           interaction.InteractionType,
	}).Info("Interaction created successfully")

	return nil
}

// FindBetween returns the interaction recorded for the unordered pair
func (r *InteractionRepository) FindBetween(ctx context.Context, drugAID, drugBID int64) (*domain.DrugInteraction, error) {
	a, b := orderedPair(drugAID, drugBID)
	query := `SELECT ` + interactionColumns + ` FROM drug_interactions WHERE drug_a_id = $1 AND drug_b_id = $2`

	interaction, err := scanInteraction(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("interaction not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"drug_a_id": a,
			"drug_b_id": b,
			"error":     err,
		}).Error("Failed to find interaction")
		return nil, fmt.Errorf("finding interaction: %w", err)
	}
	return interaction, nil
}

// ListForProduct returns every interaction involving a product
func (r *InteractionRepository) ListForProduct(ctx context.Context, productID int64) ([]*domain.DrugInteraction, error) {
	query := `SELECT ` + interactionColumns + `
		FROM drug_interactions
		WHERE drug_a_id = $1 OR drug_b_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	return collect(rows, scanInteraction)
}

// Delete removes an interaction
func (r *InteractionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM drug_interactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting interaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("interaction not found: %w", domain.ErrNotFound)
	}
	return nil
}

func scanInteraction(row pgx.Row) (*domain.DrugInteraction, error) {
	var i domain.DrugInteraction
	err := row.Scan(&i.ID, &i.DrugAID, &i.DrugBID, &i.InteractionType, &i.EffectDescription, &i.Severity, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
