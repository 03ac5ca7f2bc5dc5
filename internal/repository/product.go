package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

const productColumns = `id, name, description, target_indication, therapeutic_area,
		development_phase, moa_video_url, created_at, updated_at`

// ProductRepository handles product catalog persistence
type ProductRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new product and fills its generated fields
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO products (
			name, description, target_indication, therapeutic_area,
			development_phase, moa_video_url
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.TargetIndication,
		product.TherapeuticArea,
		product.DevelopmentPhase,
		product.MOAVideoURL,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %q already exists: %w", product.Name, domain.ErrConflict)
		}
		r.log.WithFields(logrus.Fields{
			"name":  product.Name,
			"error": err,
		}).Error("Failed to create product")
		return fmt.Errorf("creating product: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created successfully")

	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"product_id": id,
			"error":      err,
		}).Error("Failed to get product by ID")
		return nil, fmt.Errorf("getting product by ID: %w", err)
	}

	return product, nil
}

// GetByName retrieves a product by its name, case-insensitively
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE LOWER(name) = LOWER($1)`

	product, err := scanProduct(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"name":  name,
			"error": err,
		}).Error("Failed to get product by name")
		return nil, fmt.Errorf("getting product by name: %w", err)
	}

	return product, nil
}

// List returns products ordered by name with pagination
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"limit":  limit,
			"offset": offset,
			"error":  err,
		}).Error("Failed to list products")
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// Update updates an existing product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE products SET
			name = $2, description = $3, target_indication = $4,
			therapeutic_area = $5, development_phase = $6, moa_video_url = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.TargetIndication,
		product.TherapeuticArea,
		product.DevelopmentPhase,
		product.MOAVideoURL,
	).Scan(&product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("product not found: %w", domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("product %q already exists: %w", product.Name, domain.ErrConflict)
		}
		r.log.WithFields(logrus.Fields{
			"product_id": product.ID,
			"error":      err,
		}).Error("Failed to update product")
		return fmt.Errorf("updating product: %w", err)
	}

	r.log.WithField("product_id", product.ID).Info("Product updated successfully")
	return nil
}

// Delete removes a product and, by cascade, all of its intelligence
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"product_id": id,
			"error":      err,
		}).Error("Failed to delete product")
		return fmt.Errorf("deleting product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("product_id", id).Info("Product deleted successfully")
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.TargetIndication,
		&p.TherapeuticArea,
		&p.DevelopmentPhase,
		&p.MOAVideoURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
