// Package analysis holds the heuristic engines of the platform: mechanism
// inference, drug-combination scoring, trial outcome prediction and the
// keyword extractors used during ingestion. Everything here is pure and safe
// for concurrent use.
package analysis

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/letscience-intel-server/internal/domain"
)

//go:embed mechanism_rules.yaml
var defaultMechanismRules []byte

// MechanismRule maps a set of description keywords to a mechanism
type MechanismRule struct {
	Mechanism domain.MechanismType `yaml:"mechanism" json:"mechanism"`
	Keywords  []string             `yaml:"keywords" json:"keywords"`
}

type mechanismRuleFile struct {
	Rules []MechanismRule `yaml:"rules"`
}

// ParseMechanismRules decodes an ordered rule list from YAML
func ParseMechanismRules(data []byte) ([]MechanismRule, error) {
	var file mechanismRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding mechanism rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("mechanism rules: no rules defined")
	}

	rules := make([]MechanismRule, 0, len(file.Rules))
	for i, r := range file.Rules {
		mechanism, ok := domain.ParseMechanismType(string(r.Mechanism))
		if !ok || mechanism == domain.MechanismUnknown {
			return nil, fmt.Errorf("mechanism rule %d: unsupported mechanism %q", i, r.Mechanism)
		}

		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("mechanism rule %d: no keywords", i)
		}
		rules = append(rules, MechanismRule{Mechanism: mechanism, Keywords: keywords})
	}
	return rules, nil
}

// LoadMechanismRules reads a rule file from disk
func LoadMechanismRules(path string) ([]MechanismRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mechanism rules: %w", err)
	}
	return ParseMechanismRules(data)
}

// DefaultMechanismRules returns the built-in rule list
func DefaultMechanismRules() []MechanismRule {
	rules, err := ParseMechanismRules(defaultMechanismRules)
	if err != nil {
		panic(fmt.Sprintf("embedded mechanism rules are invalid: %v", err))
	}
	return rules
}

// MechanismClassifier infers Agonist/Antagonist from free text. Rules can be
// swapped at runtime.
type MechanismClassifier struct {
	mu    sync.RWMutex
	rules []MechanismRule
}

// NewMechanismClassifier creates a classifier. An empty rule list selects the
// built-in rules.
func NewMechanismClassifier(rules []MechanismRule) *MechanismClassifier {
	if len(rules) == 0 {
		rules = DefaultMechanismRules()
	}
	return &MechanismClassifier{rules: rules}
}

// Classify returns the mechanism of the first rule whose keyword appears in
// the lowercased description, or Unknown.
func (c *MechanismClassifier) Classify(description string) domain.MechanismType {
	text := strings.ToLower(description)
	if text == "" {
		return domain.MechanismUnknown
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Mechanism
			}
		}
	}
	return domain.MechanismUnknown
}

// SetRules replaces the active rule list
func (c *MechanismClassifier) SetRules(rules []MechanismRule) {
	if len(rules) == 0 {
		return
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
}

// Rules returns a copy of the active rule list
func (c *MechanismClassifier) Rules() []MechanismRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MechanismRule, len(c.rules))
	for i, r := range c.rules {
		out[i] = MechanismRule{Mechanism: r.Mechanism, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
