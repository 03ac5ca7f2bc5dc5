package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

// detailError maps a failed insert into one of the product detail tables
func (r *ProductRepository) detailError(err error, table string, productID int64) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("product %d not found: %w", productID, domain.ErrNotFound)
	}
	r.log.WithFields(logrus.Fields{
		"table":      table,
		"product_id": productID,
		"error":      err,
	}).Error("Failed to insert product detail")
	return fmt.Errorf("inserting into %s: %w", table, err)
}

// AddSideEffect records a side effect once per product and reports whether it
// was new.
func (r *ProductRepository) AddSideEffect(ctx context.Context, productID int64, effect string) (bool, error) {
	effect = strings.TrimSpace(effect)
	if effect == "" {
		return false, domain.NewValidationError("effect", "is required", effect)
	}

	query := `
		INSERT INTO product_side_effects (product_id, effect)
		VALUES ($1, $2)
		ON CONFLICT (product_id, effect) DO NOTHING`

	result, err := r.db.Exec(ctx, query, productID, effect)
	if err != nil {
		return false, r.detailError(err, "product_side_effects", productID)
	}
	return result.RowsAffected() > 0, nil
}

// ListSideEffects returns the side effects of a product in alphabetical order
func (r *ProductRepository) ListSideEffects(ctx context.Context, productID int64) ([]string, error) {
	query := `SELECT effect FROM product_side_effects WHERE product_id = $1 ORDER BY effect`
	return r.listStrings(ctx, query, productID, "side effects")
}

// AddPharmacodynamics records a pharmacodynamic parameter
func (r *ProductRepository) AddPharmacodynamics(ctx context.Context, pd *domain.Pharmacodynamics) error {
	if strings.TrimSpace(pd.Parameter) == "" {
		return domain.NewValidationError("parameter", "is required", pd.Parameter)
	}

	query := `
		INSERT INTO product_pharmacodynamics (
			product_id, parameter, value, unit, target, mechanism_of_action_type
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		pd.ProductID, pd.Parameter, pd.Value, pd.Unit, pd.Target, pd.MechanismOfActionType,
	).Scan(&pd.ID)
	if err != nil {
		return r.detailError(err, "product_pharmacodynamics", pd.ProductID)
	}
	return nil
}

// ListPharmacodynamics returns the pharmacodynamic parameters of a product
func (r *ProductRepository) ListPharmacodynamics(ctx context.Context, productID int64) ([]*domain.Pharmacodynamics, error) {
	query := `
		SELECT id, product_id, parameter, value, unit, target, mechanism_of_action_type
		FROM product_pharmacodynamics
		WHERE product_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing pharmacodynamics: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Pharmacodynamics, error) {
		var pd domain.Pharmacodynamics
		err := row.Scan(&pd.ID, &pd.ProductID, &pd.Parameter, &pd.Value, &pd.Unit, &pd.Target, &pd.MechanismOfActionType)
		return &pd, err
	})
}

// AddMilestone records a development milestone
func (r *ProductRepository) AddMilestone(ctx context.Context, m *domain.Milestone) error {
	if strings.TrimSpace(m.Event) == "" {
		return domain.NewValidationError("event", "is required", m.Event)
	}

	query := `
		INSERT INTO product_milestones (product_id, date, event, phase)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query, m.ProductID, m.Date, m.Event, m.Phase).Scan(&m.ID); err != nil {
		return r.detailError(err, "product_milestones", m.ProductID)
	}
	return nil
}

// ListMilestones returns the milestones of a product in date order
func (r *ProductRepository) ListMilestones(ctx context.Context, productID int64) ([]*domain.Milestone, error) {
	query := `
		SELECT id, product_id, date, event, phase
		FROM product_milestones
		WHERE product_id = $1
		ORDER BY date, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Milestone, error) {
		var m domain.Milestone
		err := row.Scan(&m.ID, &m.ProductID, &m.Date, &m.Event, &m.Phase)
		return &m, err
	})
}

// AddIndication records an indication
func (r *ProductRepository) AddIndication(ctx context.Context, ind *domain.Indication) error {
	if strings.TrimSpace(ind.DiseaseName) == "" {
		return domain.NewValidationError("disease", "is required", ind.DiseaseName)
	}

	query := `
		INSERT INTO product_indications (
			product_id, disease_name, approval_status, reference_url, reference_title
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ind.ProductID, ind.DiseaseName, ind.ApprovalStatus, ind.ReferenceURL, ind.ReferenceTitle,
	).Scan(&ind.ID)
	if err != nil {
		return r.detailError(err, "product_indications", ind.ProductID)
	}
	return nil
}

// ListIndications returns the indications of a product
func (r *ProductRepository) ListIndications(ctx context.Context, productID int64) ([]*domain.Indication, error) {
	query := `
		SELECT id, product_id, disease_name, approval_status, reference_url, reference_title
		FROM product_indications
		WHERE product_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing indications: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Indication, error) {
		var ind domain.Indication
		err := row.Scan(&ind.ID, &ind.ProductID, &ind.DiseaseName, &ind.ApprovalStatus, &ind.ReferenceURL, &ind.ReferenceTitle)
		return &ind, err
	})
}

// AddSynthesisStep records an extracted synthesis step
func (r *ProductRepository) AddSynthesisStep(ctx context.Context, productID int64, step string) error {
	if strings.TrimSpace(step) == "" {
		return domain.NewValidationError("step_description", "is required", step)
	}

	query := `INSERT INTO product_synthesis_steps (product_id, step_description) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, productID, step); err != nil {
		return r.detailError(err, "product_synthesis_steps", productID)
	}
	return nil
}

// ListSynthesisSteps returns the synthesis steps of a product in insertion order
func (r *ProductRepository) ListSynthesisSteps(ctx context.Context, productID int64) ([]string, error) {
	query := `SELECT step_description FROM product_synthesis_steps WHERE product_id = $1 ORDER BY id`
	return r.listStrings(ctx, query, productID, "synthesis steps")
}

// AddSynthesisScheme records a synthesis scheme
func (r *ProductRepository) AddSynthesisScheme(ctx context.Context, s *domain.SynthesisScheme) error {
	if strings.TrimSpace(s.Name) == "" {
		return domain.NewValidationError("name", "is required", s.Name)
	}

	query := `
		INSERT INTO product_synthesis_schemes (
			product_id, scheme_name, scheme_description, scheme_image_url
		) VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query, s.ProductID, s.Name, s.Description, s.ImageURL).Scan(&s.ID); err != nil {
		return r.detailError(err, "product_synthesis_schemes", s.ProductID)
	}
	return nil
}

// ListSynthesisSchemes returns the synthesis schemes of a product
func (r *ProductRepository) ListSynthesisSchemes(ctx context.Context, productID int64) ([]*domain.SynthesisScheme, error) {
	query := `
		SELECT id, product_id, scheme_name, scheme_description, scheme_image_url
		FROM product_synthesis_schemes
		WHERE product_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing synthesis schemes: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.SynthesisScheme, error) {
		var s domain.SynthesisScheme
		err := row.Scan(&s.ID, &s.ProductID, &s.Name, &s.Description, &s.ImageURL)
		return &s, err
	})
}

func (r *ProductRepository) listStrings(ctx context.Context, query string, productID int64, what string) ([]string, error) {
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", what, err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", what, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// collect scans every row with scan and always returns a non-nil slice
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
