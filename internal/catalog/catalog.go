// Package catalog holds the curated seed catalog of tracked products and the
// helpers that load it into the stores.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/letscience-intel-server/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// PharmacodynamicsEntry is a measured parameter in the catalog file
type PharmacodynamicsEntry struct {
	Parameter string `yaml:"parameter"`
	Value     string `yaml:"value"`
	Unit      string `yaml:"unit"`
	Target    string `yaml:"target"`
}

// IndicationEntry is an indication in the catalog file
type IndicationEntry struct {
	Disease string `yaml:"disease"`
	Status  string `yaml:"status"`
}

// ProductEntry is one curated product
type ProductEntry struct {
	Name             string                  `yaml:"name"`
	Generic          string                  `yaml:"generic"`
	Description      string                  `yaml:"description"`
	TargetIndication string                  `yaml:"target_indication"`
	TherapeuticArea  string                  `yaml:"therapeutic_area"`
	DevelopmentPhase string                  `yaml:"development_phase"`
	MOAVideoURL      string                  `yaml:"moa_video_url"`
	Targets          []string                `yaml:"targets"`
	SideEffects      []string                `yaml:"side_effects"`
	Pharmacodynamics []PharmacodynamicsEntry `yaml:"pharmacodynamics"`
	Indications      []IndicationEntry       `yaml:"indications"`
}

// InteractionEntry is a curated interaction between two catalog products
type InteractionEntry struct {
	DrugA    string `yaml:"drug_a"`
	DrugB    string `yaml:"drug_b"`
	Type     string `yaml:"type"`
	Effect   string `yaml:"effect"`
	Severity string `yaml:"severity"`
}

// Catalog is a parsed seed catalog
type Catalog struct {
	Products     []ProductEntry     `yaml:"products"`
	Interactions []InteractionEntry `yaml:"interactions"`

	byName map[string]int
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c.byName = make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		key := normalize(p.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog product %d has no name", i)
		}
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog product %q listed twice", p.Name)
		}
		c.byName[key] = i
	}

	for _, in := range c.Interactions {
		if _, ok := c.Lookup(in.DrugA); !ok {
			return nil, fmt.Errorf("interaction references unknown product %q", in.DrugA)
		}
		if _, ok := c.Lookup(in.DrugB); !ok {
			return nil, fmt.Errorf("interaction references unknown product %q", in.DrugB)
		}
		if normalize(in.DrugA) == normalize(in.DrugB) {
			return nil, fmt.Errorf("interaction of %q with itself", in.DrugA)
		}
		if strings.TrimSpace(in.Type) == "" {
			return nil, fmt.Errorf("interaction %s/%s has no type", in.DrugA, in.DrugB)
		}
	}
	return &c, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup finds a product by brand or generic name, case-insensitively
func (c *Catalog) Lookup(name string) (*ProductEntry, bool) {
	key := normalize(name)
	if i, ok := c.byName[key]; ok {
		return &c.Products[i], true
	}
	for i := range c.Products {
		if normalize(c.Products[i].Generic) == key {
			return &c.Products[i], true
		}
	}
	return nil, false
}

// Names returns the brand names of all products, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Products))
	for _, p := range c.Products {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// AllTargets returns the explicit targets plus pharmacodynamic targets
func (p *ProductEntry) AllTargets() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			return
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	for _, t := range p.Targets {
		add(t)
	}
	for _, pd := range p.Pharmacodynamics {
		add(pd.Target)
	}
	return out
}

// Profile returns the scoring profile of a catalog product
func (p *ProductEntry) Profile() domain.DrugProfile {
	return domain.DrugProfile{
		Name:        p.Name,
		Indication:  p.TargetIndication,
		Description: p.Description,
		Targets:     p.AllTargets(),
		SideEffects: append([]string(nil), p.SideEffects...),
	}
}

// Product converts the entry into a domain product
func (p *ProductEntry) Product() *domain.Product {
	return &domain.Product{
		Name:             p.Name,
		Description:      p.Description,
		TargetIndication: p.TargetIndication,
		TherapeuticArea:  p.TherapeuticArea,
		DevelopmentPhase: p.DevelopmentPhase,
		MOAVideoURL:      p.MOAVideoURL,
	}
}

// KnownInteraction returns the curated interaction between two products
func (c *Catalog) KnownInteraction(a, b string) *domain.KnownInteraction {
	ka, kb := c.canonical(a), c.canonical(b)
	for _, in := range c.Interactions {
		ia, ib := normalize(in.DrugA), normalize(in.DrugB)
		if (ia == ka && ib == kb) || (ia == kb && ib == ka) {
			return &domain.KnownInteraction{
				Type:              in.Type,
				EffectDescription: in.Effect,
				Severity:          in.Severity,
			}
		}
	}
	return nil
}

// canonical maps a brand or generic name to the normalized brand name
func (c *Catalog) canonical(name string) string {
	if p, ok := c.Lookup(name); ok {
		return normalize(p.Name)
	}
	return normalize(name)
}
