package analysis

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
)

func TestMechanismClassifier_Classify(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    domain.MechanismType
	}{
		{"empty description", "", domain.MechanismUnknown},
		{"receptor agonist", "GLP-1 receptor agonist", domain.MechanismAgonist},
		{"hormone analogue", "A long-acting GLP-1 analogue", domain.MechanismAgonist},
		{"uppercase stimulant", "STIMULATES insulin secretion", domain.MechanismAgonist},
		{"kinase inhibitor", "Bruton tyrosine kinase inhibitor", domain.MechanismAntagonist},
		{"monoclonal suffix", "Pembrolizumab", domain.MechanismAntagonist},
		{"antagonist keywords win", "Partial agonist and receptor blocker", domain.MechanismAntagonist},
		{"no keywords", "Vitamin supplement", domain.MechanismUnknown},
	}

	classifier := NewMechanismClassifier(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(tt.description))
		})
	}
}

func TestDefaultMechanismRules(t *testing.T) {
	rules := DefaultMechanismRules()
	require.Len(t, rules, 2)
	assert.Equal(t, domain.MechanismAntagonist, rules[0].Mechanism)
	assert.Contains(t, rules[0].Keywords, "mab")
	assert.Equal(t, domain.MechanismAgonist, rules[1].Mechanism)
	assert.Contains(t, rules[1].Keywords, "mimetic")
}

func TestParseMechanismRules(t *testing.T) {
	t.Run("normalizes keywords", func(t *testing.T) {
		rules, err := ParseMechanismRules([]byte(`
rules:
  - mechanism: agonist
    keywords: ["  Opener ", "", "POTENTIATOR"]
`))
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, domain.MechanismAgonist, rules[0].Mechanism)
		assert.Equal(t, []string{"opener", "potentiator"}, rules[0].Keywords)
	})

	errorCases := map[string]string{
		"invalid yaml":          "rules: [",
		"no rules":              "rules: []",
		"unknown mechanism":     "rules:\n  - mechanism: Unknown\n    keywords: [x]\n",
		"unsupported mechanism": "rules:\n  - mechanism: Modulator\n    keywords: [x]\n",
		"no keywords":           "rules:\n  - mechanism: Agonist\n    keywords: [\"\"]\n",
	}
	for name, data := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMechanismRules([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMechanismRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - mechanism: Agonist
    keywords: [opener]
  - mechanism: Antagonist
    keywords: [closer]
`), 0o600))

	rules, err := LoadMechanismRules(path)
	require.NoError(t, err)

	classifier := NewMechanismClassifier(rules)
	assert.Equal(t, domain.MechanismAgonist, classifier.Classify("Potassium channel opener"))
	assert.Equal(t, domain.MechanismAntagonist, classifier.Classify("Channel closer"))
	assert.Equal(t, domain.MechanismUnknown, classifier.Classify("Kinase inhibitor"))

	_, err = LoadMechanismRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMechanismClassifier_SetRules(t *testing.T) {
	classifier := NewMechanismClassifier(nil)
	require.Equal(t, domain.MechanismAntagonist, classifier.Classify("kinase inhibitor"))

	classifier.SetRules([]MechanismRule{{Mechanism: domain.MechanismAgonist, Keywords: []string{"inhibitor"}}})
	assert.Equal(t, domain.MechanismAgonist, classifier.Classify("kinase inhibitor"))

	// empty lists are ignored
	classifier.SetRules(nil)
	assert.Len(t, classifier.Rules(), 1)

	rules := classifier.Rules()
	rules[0].Mechanism = domain.MechanismAntagonist
	rules[0].Keywords[0] = "activator"
	assert.Equal(t, domain.MechanismAgonist, classifier.Rules()[0].Mechanism)
	assert.Equal(t, []string{"inhibitor"}, classifier.Rules()[0].Keywords)
	assert.Equal(t, domain.MechanismAgonist, classifier.Classify("kinase inhibitor"))
}

func TestMechanismClassifier_ConcurrentUse(t *testing.T) {
	classifier := NewMechanismClassifier(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				classifier.SetRules(DefaultMechanismRules())
				return
			}
			classifier.Classify("receptor agonist")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, domain.MechanismAgonist, classifier.Classify("receptor agonist"))
}
