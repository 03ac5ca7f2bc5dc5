package external

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/letscience-intel-server/internal/domain"
)

//go:embed patents.yaml
var curatedPatents []byte

const (
	googlePatentURL = "https://patents.google.com/patent/%s"
	patentTermYears = 20
)

type patentFamily struct {
	Assignee string `yaml:"assignee"`
	Patents  []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
		Date  string `yaml:"date"`
		Type  string `yaml:"type"`
	} `yaml:"patents"`
}

// PatentCatalog serves the curated patent families. No public patent API is
// queried; products outside the catalog have no patents.
type PatentCatalog struct {
	families map[string]*patentFamily
	names    map[string]string
}

// NewPatentCatalog parses the embedded catalog
func NewPatentCatalog() (*PatentCatalog, error) {
	return ParsePatentCatalog(curatedPatents)
}

// ParsePatentCatalog parses a catalog document
func ParsePatentCatalog(data []byte) (*PatentCatalog, error) {
	var doc struct {
		Products map[string]*patentFamily `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse patent catalog: %w", err)
	}

	c := &PatentCatalog{families: doc.Products, names: make(map[string]string, len(doc.Products))}
	for name, family := range doc.Products {
		for _, p := range family.Patents {
			if p.ID == "" {
				return nil, fmt.Errorf("patent of %s has no id", name)
			}
			if _, err := time.Parse("2006-01-02", p.Date); err != nil {
				return nil, fmt.Errorf("patent %s has invalid date %q", p.ID, p.Date)
			}
		}
		c.names[strings.ToLower(name)] = name
	}
	return c, nil
}

// Products returns the product names covered by the catalog
func (c *PatentCatalog) Products() []string {
	names := make([]string, 0, len(c.families))
	for name := range c.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search returns the patents of the product named query, newest first
func (c *PatentCatalog) Search(_ context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	name, ok := c.names[strings.ToLower(strings.TrimSpace(query))]
	if !ok {
		return []*domain.IntelligenceRecord{}, nil
	}
	family := c.families[name]

	records := make([]*domain.IntelligenceRecord, 0, len(family.Patents))
	for _, p := range family.Patents {
		published, _ := time.Parse("2006-01-02", p.Date)
		expiry := published.AddDate(patentTermYears, 0, 0)
		records = append(records, &domain.IntelligenceRecord{
			SourceID:        p.ID,
			SourceType:      domain.SourcePatent,
			Title:           p.Title,
			Abstract:        fmt.Sprintf("Patent %s assigned to %s. Covers %s.", p.ID, family.Assignee, p.Type),
			PublicationDate: &published,
			URL:             fmt.Sprintf(googlePatentURL, p.ID),
			RelatedProduct:  name,
			Metadata: map[string]interface{}{
				"status":      "Granted",
				"assignee":    family.Assignee,
				"patent_type": p.Type,
				"expiry_date": expiry.Format("2006-01-02"),
			},
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PublicationDate.After(*records[j].PublicationDate)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
