package external

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/letscience-intel-server/internal/domain"
)

// Source names used for breakers and cache namespaces
const (
	SourcePubMed         = "pubmed"
	SourceClinicalTrials = "clinical_trials"
	SourceOpenFDA        = "openfda"
	SourcePubChem        = "pubchem"
	SourcePatents        = "patents"
)

// Searcher finds intelligence records for a free-text query
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error)
}

// LabelSource reads drug labels
type LabelSource interface {
	Label(ctx context.Context, brand string) (*DrugLabel, error)
	TopBrands(ctx context.Context, limit int) ([]string, error)
}

// CompoundSource reads compound properties
type CompoundSource interface {
	Properties(ctx context.Context, name string) (*CompoundProperties, error)
}

// Sources groups the connectors guarded by a ResilientClient
type Sources struct {
	PubMed         Searcher
	ClinicalTrials Searcher
	Patents        Searcher
	OpenFDA        LabelSource
	PubChem        CompoundSource
}

// NewSources creates the live connectors from configuration
func NewSources(config domain.ExternalAPIConfig) (Sources, error) {
	patents, err := NewPatentCatalog()
	if err != nil {
		return Sources{}, err
	}
	return Sources{
		PubMed:         NewPubMedClient(config.PubMed),
		ClinicalTrials: NewClinicalTrialsClient(config.ClinicalTrials),
		Patents:        patents,
		OpenFDA:        NewOpenFDAClient(config.OpenFDA),
		PubChem:        NewPubChemClient(config.PubChem),
	}, nil
}

// BreakerStatus is the state of one source breaker
type BreakerStatus struct {
	Source              string `json:"source"`
	State               string `json:"state"`
	Requests            uint32 `json:"requests"`
	TotalFailures       uint32 `json:"total_failures"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// ResilientClient wraps the connectors with a circuit breaker per source and
// a cache-first read path.
type ResilientClient struct {
	sources  Sources
	cache    *TieredCache
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewResilientClient creates a resilient client. cache may be nil.
func NewResilientClient(sources Sources, cache *TieredCache, logger *logrus.Logger) *ResilientClient {
	r := &ResilientClient{
		sources:  sources,
		cache:    cache,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
	for _, name := range []string{SourcePubMed, SourceClinicalTrials, SourceOpenFDA, SourcePubChem, SourcePatents} {
		r.breakers[name] = r.newBreaker(name)
	}
	return r
}

func (r *ResilientClient) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// A missing record or a bad query says nothing about the source's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// SearchArticles queries PubMed
func (r *ResilientClient) SearchArticles(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	return r.search(ctx, SourcePubMed, r.sources.PubMed, query, limit)
}

// SearchTrials queries ClinicalTrials.gov
func (r *ResilientClient) SearchTrials(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	return r.search(ctx, SourceClinicalTrials, r.sources.ClinicalTrials, query, limit)
}

// SearchPatents queries the patent catalog
func (r *ResilientClient) SearchPatents(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	return r.search(ctx, SourcePatents, r.sources.Patents, query, limit)
}

func (r *ResilientClient) search(ctx context.Context, source string, s Searcher, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("%s connector is not configured", source)
	}
	var records []*domain.IntelligenceRecord
	err := r.cached(ctx, source, CacheKey(source, query, strconv.Itoa(limit)), &records, func() (interface{}, error) {
		return s.Search(ctx, query, limit)
	})
	return records, err
}

// DrugLabel reads the openFDA label of a brand
func (r *ResilientClient) DrugLabel(ctx context.Context, brand string) (*DrugLabel, error) {
	if r.sources.OpenFDA == nil {
		return nil, fmt.Errorf("%s connector is not configured", SourceOpenFDA)
	}
	var label *DrugLabel
	err := r.cached(ctx, SourceOpenFDA, CacheKey(SourceOpenFDA, "label", brand), &label, func() (interface{}, error) {
		return r.sources.OpenFDA.Label(ctx, brand)
	})
	return label, err
}

// TopBrands lists the most frequently labeled brands
func (r *ResilientClient) TopBrands(ctx context.Context, limit int) ([]string, error) {
	if r.sources.OpenFDA == nil {
		return nil, fmt.Errorf("%s connector is not configured", SourceOpenFDA)
	}
	var brands []string
	err := r.cached(ctx, SourceOpenFDA, CacheKey(SourceOpenFDA, "top", strconv.Itoa(limit)), &brands, func() (interface{}, error) {
		return r.sources.OpenFDA.TopBrands(ctx, limit)
	})
	return brands, err
}

// CompoundProperties reads PubChem properties
func (r *ResilientClient) CompoundProperties(ctx context.Context, name string) (*CompoundProperties, error) {
	if r.sources.PubChem == nil {
		return nil, fmt.Errorf("%s connector is not configured", SourcePubChem)
	}
	var props *CompoundProperties
	err := r.cached(ctx, SourcePubChem, CacheKey(SourcePubChem, name), &props, func() (interface{}, error) {
		return r.sources.PubChem.Properties(ctx, name)
	})
	return props, err
}

// cached serves dest from the cache or runs fetch through the source
// breaker and caches the result. dest must be a pointer to the type fetch
// returns.
func (r *ResilientClient) cached(ctx context.Context, source, key string, dest interface{}, fetch func() (interface{}, error)) error {
	if r.cache != nil && r.cache.Get(ctx, key, dest) {
		return nil
	}

	result, err := r.breakers[source].Execute(fetch)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s is temporarily unavailable: %w", source, err)
		}
		return err
	}

	if err := assign(dest, result); err != nil {
		return err
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, result)
	}
	return nil
}

func assign(dest, result interface{}) error {
	switch d := dest.(type) {
	case *[]*domain.IntelligenceRecord:
		*d, _ = result.([]*domain.IntelligenceRecord)
	case **DrugLabel:
		*d, _ = result.(*DrugLabel)
	case *[]string:
		*d, _ = result.([]string)
	case **CompoundProperties:
		*d, _ = result.(*CompoundProperties)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

// Status reports the state of every source breaker
func (r *ResilientClient) Status() []BreakerStatus {
	statuses := make([]BreakerStatus, 0, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		statuses = append(statuses, BreakerStatus{
			Source:              name,
			State:               cb.State().String(),
			Requests:            counts.Requests,
			TotalFailures:       counts.TotalFailures,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Source < statuses[j].Source })
	return statuses
}
