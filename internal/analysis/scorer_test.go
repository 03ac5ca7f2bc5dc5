package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
)

func TestInteractionScorer_Score(t *testing.T) {
	tests := []struct {
		name             string
		a, b             domain.DrugProfile
		known            *domain.KnownInteraction
		expectedScore    int
		expectedType     string
		expectedAnalysis []string
		expectedWarnings []string
	}{
		{
			name:             "neutral pair",
			a:                domain.DrugProfile{Name: "Alpha"},
			b:                domain.DrugProfile{Name: "Beta"},
			expectedScore:    5,
			expectedType:     domain.InteractionNeutral,
			expectedAnalysis: []string{},
			expectedWarnings: []string{},
		},
		{
			name:  "known synergy",
			a:     domain.DrugProfile{Name: "Alpha"},
			b:     domain.DrugProfile{Name: "Beta"},
			known: &domain.KnownInteraction{Type: domain.InteractionSynergy, EffectDescription: "Enhanced tumor response", Severity: "Low"},

			expectedScore:    8,
			expectedType:     domain.InteractionSynergy,
			expectedAnalysis: []string{"KNOWN INTERACTION: Enhanced tumor response"},
			expectedWarnings: []string{},
		},
		{
			name: "agonist and antagonist on shared target",
			a: domain.DrugProfile{
				Name:        "Activin",
				Description: "Selective TNF receptor agonist",
				Targets:     []string{"TNF-alpha"},
			},
			b: domain.DrugProfile{
				Name:        "Humira",
				Description: "Monoclonal antibody that neutralizes TNF-alpha",
				Targets:     []string{"tnf-alpha"},
			},
			expectedScore: 1,
			expectedType:  domain.InteractionAntagonistic,
			expectedAnalysis: []string{
				"DIRECT ANTAGONISM: Opposing actions (Agonist vs Antagonist) on shared target tnf-alpha.",
			},
			expectedWarnings: []string{},
		},
		{
			name:          "redundant antagonists",
			a:             domain.DrugProfile{Name: "Tagrisso", Description: "EGFR kinase inhibitor", Targets: []string{"EGFR"}},
			b:             domain.DrugProfile{Name: "Gefitinib", Description: "EGFR tyrosine kinase inhibitor", Targets: []string{"egfr"}},
			expectedScore: 3,
			expectedType:  domain.InteractionNeutral,
			expectedAnalysis: []string{
				"MECHANISM REDUNDANCY: Both drugs act as Antagonists on egfr.",
			},
			expectedWarnings: []string{
				"High risk of cumulative toxicity due to redundant targeting of egfr.",
			},
		},
		{
			name:          "overlap with unknown mechanisms lists targets alphabetically",
			a:             domain.DrugProfile{Name: "One", Targets: []string{"Thrombin", "Factor Xa"}},
			b:             domain.DrugProfile{Name: "Two", Targets: []string{"factor xa", "thrombin", "Plasmin"}},
			expectedScore: 4,
			expectedType:  domain.InteractionNeutral,
			expectedAnalysis: []string{
				"MECHANISM OVERLAP: Shared target factor xa, thrombin detected.",
			},
			expectedWarnings: []string{},
		},
		{
			name:          "checkpoint with anti-angiogenesis",
			a:             domain.DrugProfile{Name: "Keytruda", Description: "Anti-PD-1 checkpoint inhibitor"},
			b:             domain.DrugProfile{Name: "Avastin", Description: "VEGF inhibitor that blocks angiogenesis"},
			expectedScore: 9,
			expectedType:  domain.InteractionPotentiallySynergistic,
			expectedAnalysis: []string{
				"MECHANISTIC SYNERGY: Immune checkpoint inhibition combined with anti-angiogenesis agents has shown clinical synergy by normalizing tumor vasculature.",
			},
			expectedWarnings: []string{},
		},
		{
			name:          "checkpoint flag on second drug",
			a:             domain.DrugProfile{Name: "Avastin", Description: "Anti-VEGF antibody"},
			b:             domain.DrugProfile{Name: "Opdivo", Description: "Blocks the checkpoint receptor"},
			expectedScore: 9,
			expectedType:  domain.InteractionPotentiallySynergistic,
			expectedAnalysis: []string{
				"MECHANISTIC SYNERGY: Immune checkpoint inhibition combined with anti-angiogenesis agents has shown clinical synergy by normalizing tumor vasculature.",
			},
			expectedWarnings: []string{},
		},
		{
			name:          "checkpoint with chemotherapy",
			a:             domain.DrugProfile{Name: "Tecentriq", Description: "PD-L1 blocking antibody"},
			b:             domain.DrugProfile{Name: "Carboplatin", Description: "Cytotoxic platinum chemotherapy"},
			expectedScore: 7,
			expectedType:  domain.InteractionAdditiveSynergistic,
			expectedAnalysis: []string{
				"IMMUNOGENIC PRIMING: Chemotherapy may release tumor antigens, enhancing the efficacy of the checkpoint inhibitor.",
			},
			expectedWarnings: []string{},
		},
		{
			name:          "both complementary rules clamp at ten",
			a:             domain.DrugProfile{Name: "Keytruda", Description: "PD-1 checkpoint inhibitor"},
			b:             domain.DrugProfile{Name: "Combo", Description: "Cytotoxic agent that also suppresses VEGF"},
			expectedScore: 10,
			expectedType:  domain.InteractionAdditiveSynergistic,
			expectedAnalysis: []string{
				"MECHANISTIC SYNERGY: Immune checkpoint inhibition combined with anti-angiogenesis agents has shown clinical synergy by normalizing tumor vasculature.",
				"IMMUNOGENIC PRIMING: Chemotherapy may release tumor antigens, enhancing the efficacy of the checkpoint inhibitor.",
			},
			expectedWarnings: []string{},
		},
		{
			name:             "four shared side effects",
			a:                domain.DrugProfile{Name: "A", SideEffects: []string{"Nausea", "Fatigue", "Rash", "Headache", "Anemia"}},
			b:                domain.DrugProfile{Name: "B", SideEffects: []string{"nausea", "fatigue", "rash", "headache"}},
			expectedScore:    3,
			expectedType:     domain.InteractionNeutral,
			expectedAnalysis: []string{},
			expectedWarnings: []string{
				"TOXICITY OVERLAP (High): Shared risk of Fatigue, Headache, Nausea, and 1 others. Cumulative burden may require dose reduction.",
			},
		},
		{
			name:             "three shared side effects",
			a:                domain.DrugProfile{Name: "A", SideEffects: []string{"Nausea", "Fatigue", "Rash"}},
			b:                domain.DrugProfile{Name: "B", SideEffects: []string{"rash", "nausea", "fatigue"}},
			expectedScore:    3,
			expectedType:     domain.InteractionNeutral,
			expectedAnalysis: []string{},
			expectedWarnings: []string{
				"TOXICITY OVERLAP (Moderate): Shared risk of Fatigue, Nausea, Rash. Cumulative burden may require dose reduction.",
			},
		},
		{
			name:  "known high severity antagonism with side effect overlap",
			a:     domain.DrugProfile{Name: "Eliquis", SideEffects: []string{"Bleeding", "Nausea", "Anemia"}},
			b:     domain.DrugProfile{Name: "Xarelto", SideEffects: []string{"bleeding", "anemia"}},
			known: &domain.KnownInteraction{Type: domain.InteractionAntagonism, EffectDescription: "Additive bleeding risk", Severity: domain.SeverityHigh},

			expectedScore:    1,
			expectedType:     domain.InteractionAntagonism,
			expectedAnalysis: []string{"KNOWN INTERACTION: Additive bleeding risk"},
			expectedWarnings: []string{
				"Critical known interaction detected.",
				"TOXICITY OVERLAP (Moderate): Shared risk of Anemia, Bleeding. Cumulative burden may require dose reduction.",
			},
		},
		{
			name: "score clamps at zero",
			a: domain.DrugProfile{
				Name:        "Stim",
				Description: "Receptor activator",
				Targets:     []string{"IL-6R"},
				SideEffects: []string{"rash", "fatigue", "headache"},
			},
			b: domain.DrugProfile{
				Name:        "Block",
				Description: "Receptor blocker",
				Targets:     []string{"il-6r"},
				SideEffects: []string{"rash", "fatigue", "headache"},
			},
			known:         &domain.KnownInteraction{Type: domain.InteractionAntagonism, EffectDescription: "Mutual cancellation"},
			expectedScore: 0,
			expectedType:  domain.InteractionAntagonistic,
			expectedAnalysis: []string{
				"KNOWN INTERACTION: Mutual cancellation",
				"DIRECT ANTAGONISM: Opposing actions (Agonist vs Antagonist) on shared target il-6r.",
			},
			expectedWarnings: []string{
				"TOXICITY OVERLAP (Moderate): Shared risk of Fatigue, Headache, Rash. Cumulative burden may require dose reduction.",
			},
		},
	}

	scorer := NewInteractionScorer(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.a, tt.b, tt.known)
			require.NotNil(t, result)

			assert.Equal(t, tt.expectedScore, result.SynergyScore)
			assert.Equal(t, tt.expectedType, result.InteractionType)
			assert.Equal(t, tt.expectedAnalysis, result.Analysis)
			assert.Equal(t, tt.expectedWarnings, result.SafetyWarnings)
			assert.Equal(t, tt.a.Name, result.DrugA.Name)
			assert.Equal(t, tt.b.Name, result.DrugB.Name)
		})
	}
}

func TestInteractionScorer_DrugSummaries(t *testing.T) {
	scorer := NewInteractionScorer(nil)

	result := scorer.Score(
		domain.DrugProfile{Name: "Keytruda", Indication: "Melanoma", Description: "Pembrolizumab"},
		domain.DrugProfile{Name: "Ozempic", Indication: "Type 2 Diabetes", Description: "GLP-1 receptor agonist"},
		nil,
	)

	assert.Equal(t, domain.DrugSummary{Name: "Keytruda", MechanismType: domain.MechanismAntagonist, Indication: "Melanoma"}, result.DrugA)
	assert.Equal(t, domain.DrugSummary{Name: "Ozempic", MechanismType: domain.MechanismAgonist, Indication: "Type 2 Diabetes"}, result.DrugB)
}

func TestInteractionScorer_UsesConfiguredRules(t *testing.T) {
	rules, err := ParseMechanismRules([]byte(`
rules:
  - mechanism: Agonist
    keywords: [modulator]
`))
	require.NoError(t, err)

	scorer := NewInteractionScorer(NewMechanismClassifier(rules))
	result := scorer.Score(
		domain.DrugProfile{Name: "A", Description: "Positive modulator", Targets: []string{"GABA-A"}},
		domain.DrugProfile{Name: "B", Description: "Allosteric modulator", Targets: []string{"gaba-a"}},
		nil,
	)

	assert.Equal(t, 3, result.SynergyScore)
	assert.Equal(t, []string{"MECHANISM REDUNDANCY: Both drugs act as Agonists on gaba-a."}, result.Analysis)
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"nausea, vomiting":     "Nausea, Vomiting",
		"hand-foot syndrome":   "Hand-Foot Syndrome",
		"QT PROLONGATION":      "Qt Prolongation",
		"grade 3d neutropenia": "Grade 3D Neutropenia",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in), "titleCase(%q)", in)
	}
}

func TestSharedLabels(t *testing.T) {
	shared := sharedLabels([]string{"B", "a", "", "C"}, []string{"c", "A", "a", "", "d"})
	assert.Equal(t, []string{"a", "c"}, shared)

	assert.Empty(t, sharedLabels(nil, []string{"x"}))
}
