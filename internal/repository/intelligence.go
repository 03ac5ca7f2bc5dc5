package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

// IntelligenceRepository persists patents, articles, trials and conferences
type IntelligenceRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewIntelligenceRepository creates a new intelligence repository
func NewIntelligenceRepository(db *pgxpool.Pool, logger *logrus.Logger) *IntelligenceRepository {
	return &IntelligenceRepository{
		db:  db,
		log: logger,
	}
}

// xmax is zero only for rows inserted by the current statement, which tells
// a fresh insert apart from an ON CONFLICT update.
const returningInserted = `RETURNING id, (xmax = 0) AS inserted`

func (r *IntelligenceRepository) upsertError(err error, kind, sourceID string, productID int64) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("product %d not found: %w", productID, domain.ErrNotFound)
	}
	r.log.WithFields(logrus.Fields{
		"kind":       kind,
		"source_id":  sourceID,
		"product_id": productID,
		"error":      err,
	}).Error("Failed to upsert intelligence record")
	return fmt.Errorf("upserting %s: %w", kind, err)
}

// UpsertPatent inserts or refreshes a patent keyed by product and source id
func (r *IntelligenceRepository) UpsertPatent(ctx context.Context, p *domain.Patent) (bool, error) {
	if p.SourceID == "" {
		return false, domain.NewValidationError("source_id", "is required", p.SourceID)
	}

	query := `
		INSERT INTO patents (
			product_id, source_id, title, abstract, assignee, status,
			patent_type, publication_date, expiry_date, url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (product_id, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			assignee = EXCLUDED.assignee,
			status = EXCLUDED.status,
			patent_type = EXCLUDED.patent_type,
			publication_date = EXCLUDED.publication_date,
			expiry_date = EXCLUDED.expiry_date,
			url = EXCLUDED.url
		` + returningInserted

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		p.ProductID, p.SourceID, p.Title, p.Abstract, p.Assignee, p.Status,
		p.PatentType, p.PublicationDate, p.ExpiryDate, p.URL,
	).Scan(&p.ID, &inserted)
	if err != nil {
		return false, r.upsertError(err, "patent", p.SourceID, p.ProductID)
	}
	return inserted, nil
}

// UpsertArticle inserts or refreshes an article keyed by product and source id
func (r *IntelligenceRepository) UpsertArticle(ctx context.Context, a *domain.Article) (bool, error) {
	if a.SourceID == "" {
		return false, domain.NewValidationError("source_id", "is required", a.SourceID)
	}

	query := `
		INSERT INTO scientific_articles (
			product_id, source_id, doi, title, abstract, authors, publication_date, url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, source_id) DO UPDATE SET
			doi = EXCLUDED.doi,
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			authors = EXCLUDED.authors,
			publication_date = EXCLUDED.publication_date,
			url = EXCLUDED.url
		` + returningInserted

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		a.ProductID, a.SourceID, a.DOI, a.Title, a.Abstract, a.Authors, a.PublicationDate, a.URL,
	).Scan(&a.ID, &inserted)
	if err != nil {
		return false, r.upsertError(err, "article", a.SourceID, a.ProductID)
	}
	return inserted, nil
}

// UpsertTrial inserts or refreshes a clinical trial keyed by product and NCT id
func (r *IntelligenceRepository) UpsertTrial(ctx context.Context, t *domain.Trial) (bool, error) {
	if t.NCTID == "" {
		return false, domain.NewValidationError("nct_id", "is required", t.NCTID)
	}

	conditions := t.Conditions
	if conditions == nil {
		conditions = []string{}
	}

	query := `
		INSERT INTO clinical_trials (
			product_id, nct_id, title, status, phase, conditions, sponsor,
			start_date, completion_date, url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (product_id, nct_id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			phase = EXCLUDED.phase,
			conditions = EXCLUDED.conditions,
			sponsor = EXCLUDED.sponsor,
			start_date = EXCLUDED.start_date,
			completion_date = EXCLUDED.completion_date,
			url = EXCLUDED.url
		` + returningInserted

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		t.ProductID, t.NCTID, t.Title, t.Status, t.Phase, conditions, t.Sponsor,
		t.StartDate, t.CompletionDate, t.URL,
	).Scan(&t.ID, &inserted)
	if err != nil {
		return false, r.upsertError(err, "trial", t.NCTID, t.ProductID)
	}
	return inserted, nil
}

// AddConference records a conference presentation
func (r *IntelligenceRepository) AddConference(ctx context.Context, c *domain.Conference) error {
	if c.Title == "" {
		return domain.NewValidationError("title", "is required", c.Title)
	}

	query := `
		INSERT INTO conferences (product_id, title, abstract, conference_name, date, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		c.ProductID, c.Title, c.Abstract, c.ConferenceName, c.Date, c.URL,
	).Scan(&c.ID)
	if err != nil {
		return r.upsertError(err, "conference", c.Title, c.ProductID)
	}
	return nil
}

// ListPatents returns the patents of a product, newest first
func (r *IntelligenceRepository) ListPatents(ctx context.Context, productID int64) ([]*domain.Patent, error) {
	query := `
		SELECT id, product_id, source_id, title, abstract, assignee, status,
			   patent_type, publication_date, expiry_date, url
		FROM patents
		WHERE product_id = $1
		ORDER BY publication_date DESC NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing patents: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Patent, error) {
		var p domain.Patent
		err := row.Scan(&p.ID, &p.ProductID, &p.SourceID, &p.Title, &p.Abstract, &p.Assignee,
			&p.Status, &p.PatentType, &p.PublicationDate, &p.ExpiryDate, &p.URL)
		return &p, err
	})
}

// ListArticles returns the articles of a product, newest first
func (r *IntelligenceRepository) ListArticles(ctx context.Context, productID int64) ([]*domain.Article, error) {
	query := `
		SELECT id, product_id, source_id, doi, title, abstract, authors, publication_date, url
		FROM scientific_articles
		WHERE product_id = $1
		ORDER BY publication_date DESC NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Article, error) {
		var a domain.Article
		err := row.Scan(&a.ID, &a.ProductID, &a.SourceID, &a.DOI, &a.Title, &a.Abstract,
			&a.Authors, &a.PublicationDate, &a.URL)
		return &a, err
	})
}

// ListTrials returns the clinical trials of a product, most recent start first
func (r *IntelligenceRepository) ListTrials(ctx context.Context, productID int64) ([]*domain.Trial, error) {
	query := `
		SELECT id, product_id, nct_id, title, status, phase, conditions, sponsor,
			   start_date, completion_date, url
		FROM clinical_trials
		WHERE product_id = $1
		ORDER BY start_date DESC NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing trials: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Trial, error) {
		var t domain.Trial
		err := row.Scan(&t.ID, &t.ProductID, &t.NCTID, &t.Title, &t.Status, &t.Phase, &t.Conditions,
			&t.Sponsor, &t.StartDate, &t.CompletionDate, &t.URL)
		return &t, err
	})
}

// ListConferences returns the conference presentations of a product
func (r *IntelligenceRepository) ListConferences(ctx context.Context, productID int64) ([]*domain.Conference, error) {
	query := `
		SELECT id, product_id, title, abstract, conference_name, date, url
		FROM conferences
		WHERE product_id = $1
		ORDER BY date DESC NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing conferences: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Conference, error) {
		var c domain.Conference
		err := row.Scan(&c.ID, &c.ProductID, &c.Title, &c.Abstract, &c.ConferenceName, &c.Date, &c.URL)
		return &c, err
	})
}
