// Package ingest pulls public intelligence for catalog products into the
// stores and raises alerts for records that were not known before.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/pkg/external"
)

const (
	defaultRecordsPerSource = 10
	listPageSize            = 100
)

// Source names reported per ingestion run
const (
	SourceArticles = "articles"
	SourceTrials   = "trials"
	SourcePatents  = "patents"
	SourceLabel    = "label"
)

// Connector is the read side of the external sources
type Connector interface {
	SearchArticles(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error)
	SearchTrials(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error)
	SearchPatents(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error)
	DrugLabel(ctx context.Context, brand string) (*external.DrugLabel, error)
}

// Notifier delivers alert events
type Notifier interface {
	Dispatch(ctx context.Context, event alerts.Event) (int, error)
}

// Stores are the repositories written by the pipeline
type Stores struct {
	Products     domain.ProductStore
	Details      domain.ProductDetailStore
	Intelligence domain.IntelligenceStore
}

// SourceReport is the outcome of one source within a run
type SourceReport struct {
	Source   string `json:"source"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes one product ingestion
type Report struct {
	RunID            uuid.UUID      `json:"run_id"`
	ProductID        int64          `json:"product_id"`
	ProductName      string         `json:"product_name"`
	StartedAt        time.Time      `json:"started_at"`
	Duration         string         `json:"duration"`
	Sources          []SourceReport `json:"sources"`
	SideEffectsAdded int            `json:"side_effects_added"`
	ProductUpdated   bool           `json:"product_updated"`
	AlertsDelivered  int            `json:"alerts_delivered"`
}

// Failed reports whether any source failed
func (r *Report) Failed() bool {
	for _, s := range r.Sources {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// Inserted returns the number of new records across sources
func (r *Report) Inserted() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Inserted
	}
	return n
}

// Pipeline ingests products from the external sources
type Pipeline struct {
	connector Connector
	stores    Stores
	notifier  Notifier
	logger    *logrus.Logger
	limit     int
}

// NewPipeline creates a pipeline. notifier may be nil; limit <= 0 uses 10
// records per source.
func NewPipeline(connector Connector, stores Stores, notifier Notifier, logger *logrus.Logger, limit int) *Pipeline {
	if limit <= 0 {
		limit = defaultRecordsPerSource
	}
	return &Pipeline{
		connector: connector,
		stores:    stores,
		notifier:  notifier,
		logger:    logger,
		limit:     limit,
	}
}

// fetched holds what the concurrent fetch stage collected
type fetched struct {
	articles []*domain.IntelligenceRecord
	trials   []*domain.IntelligenceRecord
	patents  []*domain.IntelligenceRecord
	label    *external.DrugLabel
	errs     map[string]error
}

// IngestProduct fetches every source for the product and stores what it
// finds. A failing source is recorded in the report and does not stop the
// others; the returned error is reserved for cancellation and store failures.
func (p *Pipeline) IngestProduct(ctx context.Context, product *domain.Product) (*Report, error) {
	if product == nil || product.ID == 0 {
		return nil, &domain.ValidationError{Field: "product", Message: "a stored product is required"}
	}

	report := &Report{
		RunID:       uuid.New(),
		ProductID:   product.ID,
		ProductName: product.Name,
		StartedAt:   time.Now(),
	}
	logger := p.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"product": product.Name,
	})

	f := p.fetch(ctx, product.Name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []alerts.Event
	steps := []struct {
		source  string
		records []*domain.IntelligenceRecord
		store   func(context.Context, int64, *domain.IntelligenceRecord) (bool, error)
	}{
		{SourceArticles, f.articles, p.storeArticle},
		{SourceTrials, f.trials, p.storeTrial},
		{SourcePatents, f.patents, p.storePatent},
	}
	for _, step := range steps {
		sr := SourceReport{Source: step.source, Fetched: len(step.records)}
		if err := f.errs[step.source]; err != nil {
			sr.Error = err.Error()
			logger.WithError(err).WithField("source", step.source).Warn("Source fetch failed")
		}
		for _, rec := range step.records {
			inserted, err := step.store(ctx, product.ID, rec)
			if err != nil {
				return nil, fmt.Errorf("storing %s %s: %w", step.source, rec.SourceID, err)
			}
			if inserted {
				sr.Inserted++
				events = append(events, alerts.NewEvent(product, rec.SourceType, rec.Title, rec.URL))
			}
		}
		report.Sources = append(report.Sources, sr)
	}

	labelReport := SourceReport{Source: SourceLabel}
	if err := f.errs[SourceLabel]; err != nil {
		labelReport.Error = err.Error()
		logger.WithError(err).WithField("source", SourceLabel).Warn("Source fetch failed")
	}
	if f.label != nil {
		labelReport.Fetched = 1
	}
	report.Sources = append(report.Sources, labelReport)

	added, err := p.storeSideEffects(ctx, product, f.label)
	if err != nil {
		return nil, err
	}
	report.SideEffectsAdded = added

	updated, err := p.enrichProduct(ctx, product, f.label)
	if err != nil {
		return nil, err
	}
	report.ProductUpdated = updated

	report.AlertsDelivered = p.notify(ctx, events, logger)
	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()

	logger.WithFields(logrus.Fields{
		"inserted":     report.Inserted(),
		"side_effects": report.SideEffectsAdded,
		"alerts":       report.AlertsDelivered,
		"failed":       report.Failed(),
		"duration":     report.Duration,
	}).Info("Product ingested")

	return report, nil
}

func (p *Pipeline) fetch(ctx context.Context, query string) *fetched {
	f := &fetched{errs: make(map[string]error)}
	errs := make([]error, 4)

	// Each source records its own error; one failing source does not stop
	// the others.
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		f.articles, errs[0] = p.connector.SearchArticles(ctx, query, p.limit)
	}()
	go func() {
		defer wg.Done()
		f.trials, errs[1] = p.connector.SearchTrials(ctx, query, p.limit)
	}()
	go func() {
		defer wg.Done()
		f.patents, errs[2] = p.connector.SearchPatents(ctx, query, p.limit)
	}()
	go func() {
		defer wg.Done()
		label, err := p.connector.DrugLabel(ctx, query)
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
		f.label, errs[3] = label, err
	}()
	wg.Wait()

	for i, source := range []string{SourceArticles, SourceTrials, SourcePatents, SourceLabel} {
		if errs[i] != nil {
			f.errs[source] = errs[i]
		}
	}
	return f
}

func (p *Pipeline) storeArticle(ctx context.Context, productID int64, rec *domain.IntelligenceRecord) (bool, error) {
	return p.stores.Intelligence.UpsertArticle(ctx, &domain.Article{
		ProductID:       productID,
		SourceID:        rec.SourceID,
		DOI:             rec.MetadataString("doi"),
		Title:           rec.Title,
		Abstract:        rec.Abstract,
		Authors:         strings.Join(rec.Authors, ", "),
		PublicationDate: rec.PublicationDate,
		URL:             rec.URL,
	})
}

func (p *Pipeline) storeTrial(ctx context.Context, productID int64, rec *domain.IntelligenceRecord) (bool, error) {
	return p.stores.Intelligence.UpsertTrial(ctx, &domain.Trial{
		ProductID:      productID,
		NCTID:          rec.SourceID,
		Title:          rec.Title,
		Status:         rec.MetadataString("status"),
		Phase:          rec.MetadataString("phase"),
		Conditions:     rec.MetadataStrings("conditions"),
		Sponsor:        rec.MetadataString("sponsor"),
		StartDate:      rec.MetadataDate("start_date"),
		CompletionDate: rec.MetadataDate("completion_date"),
		URL:            rec.URL,
	})
}

func (p *Pipeline) storePatent(ctx context.Context, productID int64, rec *domain.IntelligenceRecord) (bool, error) {
	return p.stores.Intelligence.UpsertPatent(ctx, &domain.Patent{
		ProductID:       productID,
		SourceID:        rec.SourceID,
		Title:           rec.Title,
		Abstract:        rec.Abstract,
		Assignee:        rec.MetadataString("assignee"),
		Status:          rec.MetadataString("status"),
		PatentType:      rec.MetadataString("patent_type"),
		PublicationDate: rec.PublicationDate,
		ExpiryDate:      rec.MetadataDate("expiry_date"),
		URL:             rec.URL,
	})
}

// storeSideEffects records the known side effects named by the label's
// adverse reactions and the product description.
func (p *Pipeline) storeSideEffects(ctx context.Context, product *domain.Product, label *external.DrugLabel) (int, error) {
	text := product.Description
	if label != nil {
		text = label.AdverseReactions + " " + label.Description + " " + text
	}

	added := 0
	for _, effect := range analysis.ExtractSideEffects(text) {
		isNew, err := p.stores.Details.AddSideEffect(ctx, product.ID, effect)
		if err != nil {
			return added, fmt.Errorf("storing side effect %s: %w", effect, err)
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// enrichProduct fills a missing description, indication or therapeutic area
// from the label and keeps curated values.
func (p *Pipeline) enrichProduct(ctx context.Context, product *domain.Product, label *external.DrugLabel) (bool, error) {
	changed := false
	classifyText := product.Description
	if label != nil {
		if product.Description == "" && label.Description != "" {
			product.Description = label.Description
			changed = true
		}
		classifyText = label.Indications + " " + label.Description + " " + product.Description
	}

	if strings.TrimSpace(classifyText) != "" && (product.TargetIndication == "" || product.TherapeuticArea == "") {
		area, disease := analysis.ClassifyIndication(classifyText)
		if product.TherapeuticArea == "" {
			product.TherapeuticArea = area
			changed = true
		}
		if product.TargetIndication == "" {
			product.TargetIndication = disease
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	if err := p.stores.Products.Update(ctx, product); err != nil {
		return false, fmt.Errorf("updating product %d: %w", product.ID, err)
	}
	return true, nil
}

func (p *Pipeline) notify(ctx context.Context, events []alerts.Event, logger *logrus.Entry) int {
	if p.notifier == nil {
		return 0
	}
	delivered := 0
	for _, event := range events {
		n, err := p.notifier.Dispatch(ctx, event)
		if err != nil {
			logger.WithError(err).WithField("event_id", event.ID).Warn("Failed to dispatch alert")
			continue
		}
		delivered += n
	}
	return delivered
}

// IngestAll ingests every stored product in name order. Store failures stop
// the run; source failures are only reported.
func (p *Pipeline) IngestAll(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for offset := 0; ; offset += listPageSize {
		products, err := p.stores.Products.List(ctx, listPageSize, offset)
		if err != nil {
			return reports, fmt.Errorf("listing products: %w", err)
		}
		for _, product := range products {
			report, err := p.IngestProduct(ctx, product)
			if err != nil {
				return reports, fmt.Errorf("ingesting %s: %w", product.Name, err)
			}
			reports = append(reports, report)
		}
		if len(products) < listPageSize {
			return reports, nil
		}
	}
}
