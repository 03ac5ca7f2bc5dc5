package domain

import (
	"time"
)

// SourceType identifies the kind of intelligence a record carries
type SourceType string

const (
	SourceArticle       SourceType = "article"
	SourcePatent        SourceType = "patent"
	SourceClinicalTrial SourceType = "clinical_trial"
	SourceConference    SourceType = "conference"
)

// IntelligenceRecord is the unified shape returned by every connector
type IntelligenceRecord struct {
	SourceID        string                 `json:"source_id"`
	SourceType      SourceType             `json:"source_type"`
	Title           string                 `json:"title"`
	Abstract        string                 `json:"abstract,omitempty"`
	Authors         []string               `json:"authors,omitempty"`
	PublicationDate *time.Time             `json:"publication_date,omitempty"`
	URL             string                 `json:"url,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	RelatedProduct  string                 `json:"related_product,omitempty"`
}

// MetadataString returns a metadata value as a string, or "" when absent
func (r *IntelligenceRecord) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetadataStrings returns a list metadata value. Lists decoded from JSON
// arrive as []interface{} and are converted.
func (r *IntelligenceRecord) MetadataStrings(key string) []string {
	if r.Metadata == nil {
		return nil
	}
	switch v := r.Metadata[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// MetadataDate parses a YYYY-MM-DD metadata value
func (r *IntelligenceRecord) MetadataDate(key string) *time.Time {
	s := r.MetadataString(key)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// Patent is a patent linked to a product
type Patent struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	SourceID        string     `json:"source_id"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract,omitempty"`
	Assignee        string     `json:"assignee,omitempty"`
	Status          string     `json:"status,omitempty"`
	PatentType      string     `json:"patent_type,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	URL             string     `json:"url,omitempty"`
}

// Article is a scientific article linked to a product
type Article struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	SourceID        string     `json:"source_id"`
	DOI             string     `json:"doi,omitempty"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract,omitempty"`
	Authors         string     `json:"authors,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	URL             string     `json:"url,omitempty"`
}

// Trial is a clinical trial linked to a product
type Trial struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"product_id"`
	NCTID          string     `json:"nct_id"`
	Title          string     `json:"title"`
	Status         string     `json:"status,omitempty"`
	Phase          string     `json:"phase,omitempty"`
	Conditions     []string   `json:"conditions,omitempty"`
	Sponsor        string     `json:"sponsor,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	URL            string     `json:"url,omitempty"`
}

// Conference is a conference presentation linked to a product
type Conference struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"product_id"`
	Title          string     `json:"title"`
	Abstract       string     `json:"abstract,omitempty"`
	ConferenceName string     `json:"conference_name,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	URL            string     `json:"url,omitempty"`
}

// IntelligenceSummary carries the headline counts of a product view
type IntelligenceSummary struct {
	TotalPatents  int    `json:"total_patents"`
	TotalArticles int    `json:"total_articles"`
	TotalTrials   int    `json:"total_trials"`
	LatestPhase   string `json:"latest_phase"`
}

// ProductIntelligence is the unified intelligence view of one product
type ProductIntelligence struct {
	Product          *Product            `json:"product_info"`
	Patents          []*Patent           `json:"patents"`
	Articles         []*Article          `json:"scientific_articles"`
	Trials           []*Trial            `json:"clinical_trials"`
	Conferences      []*Conference       `json:"conferences"`
	SideEffects      []string            `json:"side_effects"`
	SynthesisSteps   []string            `json:"synthesis_steps"`
	Milestones       []*Milestone        `json:"milestones"`
	Indications      []*Indication       `json:"indications"`
	SynthesisSchemes []*SynthesisScheme  `json:"synthesis_schemes"`
	Pharmacodynamics []*Pharmacodynamics `json:"pharmacodynamics"`
	Summary          IntelligenceSummary `json:"summary"`
}
