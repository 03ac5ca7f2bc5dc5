package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	baselineScore = 5
	minScore      = 0
	maxScore      = 10
)

var (
	checkpointMarkers   = []string{"pd-1", "pd-l1", "checkpoint"}
	angiogenesisMarkers = []string{"vegf", "angiogenesis"}
	chemotherapyMarkers = []string{"chemotherapy", "cytotoxic"}
)

// InteractionScorer rates a drug pair on a 0-10 synergy scale
type InteractionScorer struct {
	classifier *MechanismClassifier
}

// NewInteractionScorer creates a scorer. A nil classifier selects the
// built-in mechanism rules.
func NewInteractionScorer(classifier *MechanismClassifier) *InteractionScorer {
	if classifier == nil {
		classifier = NewMechanismClassifier(nil)
	}
	return &InteractionScorer{classifier: classifier}
}

// Classifier returns the mechanism classifier used by the scorer
func (s *InteractionScorer) Classifier() *MechanismClassifier {
	return s.classifier
}

// Score applies, in order, the curated interaction, target overlap,
// complementary mechanism and side-effect overlap rules, then clamps the
// score to [0, 10]. known may be nil.
func (s *InteractionScorer) Score(a, b domain.DrugProfile, known *domain.KnownInteraction) *domain.CombinationResult {
	mechA := s.classifier.Classify(a.Description)
	mechB := s.classifier.Classify(b.Description)

	result := &domain.CombinationResult{
		DrugA:           domain.DrugSummary{Name: a.Name, MechanismType: mechA, Indication: a.Indication},
		DrugB:           domain.DrugSummary{Name: b.Name, MechanismType: mechB, Indication: b.Indication},
		SynergyScore:    baselineScore,
		InteractionType: domain.InteractionNeutral,
		Analysis:        []string{},
		SafetyWarnings:  []string{},
	}

	if known != nil {
		applyKnownInteraction(result, known)
	}
	applyTargetOverlap(result, mechA, mechB, a.Targets, b.Targets)
	applyComplementaryMechanisms(result, a.Description, b.Description)
	applySideEffectOverlap(result, a.SideEffects, b.SideEffects)

	result.SynergyScore = clamp(result.SynergyScore, minScore, maxScore)
	return result
}

func applyKnownInteraction(result *domain.CombinationResult, known *domain.KnownInteraction) {
	result.InteractionType = known.Type
	result.Analysis = append(result.Analysis, "KNOWN INTERACTION: "+known.EffectDescription)

	switch known.Type {
	case domain.InteractionSynergy:
		result.SynergyScore += 3
	case domain.InteractionAntagonism:
		result.SynergyScore -= 3
	}

	if known.Severity == domain.SeverityHigh {
		result.SafetyWarnings = append(result.SafetyWarnings, "Critical known interaction detected.")
	}
}

func applyTargetOverlap(result *domain.CombinationResult, mechA, mechB domain.MechanismType, targetsA, targetsB []string) {
	shared := sharedLabels(targetsA, targetsB)
	if len(shared) == 0 {
		return
	}
	targets := strings.Join(shared, ", ")

	opposing := (mechA == domain.MechanismAgonist && mechB == domain.MechanismAntagonist) ||
		(mechA == domain.MechanismAntagonist && mechB == domain.MechanismAgonist)

	switch {
	case opposing:
		result.Analysis = append(result.Analysis,
			fmt.Sprintf("DIRECT ANTAGONISM: Opposing actions (Agonist vs Antagonist) on shared target %s.", targets))
		result.SynergyScore -= 4
		result.InteractionType = domain.InteractionAntagonistic
	case mechA == mechB && mechA != domain.MechanismUnknown:
		result.Analysis = append(result.Analysis,
			fmt.Sprintf("MECHANISM REDUNDANCY: Both drugs act as %ss on %s.", mechA, targets))
		result.SynergyScore -= 2
		result.SafetyWarnings = append(result.SafetyWarnings,
			fmt.Sprintf("High risk of cumulative toxicity due to redundant targeting of %s.", targets))
	default:
		result.Analysis = append(result.Analysis,
			fmt.Sprintf("MECHANISM OVERLAP: Shared target %s detected.", targets))
		result.SynergyScore -= 1
	}
}

type complementFlags struct {
	checkpoint   bool
	angiogenesis bool
	chemotherapy bool
}

func complementOf(description string) complementFlags {
	text := strings.ToLower(description)
	return complementFlags{
		checkpoint:   containsAny(text, checkpointMarkers),
		angiogenesis: containsAny(text, angiogenesisMarkers),
		chemotherapy: containsAny(text, chemotherapyMarkers),
	}
}

func applyComplementaryMechanisms(result *domain.CombinationResult, descA, descB string) {
	a, b := complementOf(descA), complementOf(descB)

	if (a.checkpoint && b.angiogenesis) || (b.checkpoint && a.angiogenesis) {
		result.Analysis = append(result.Analysis,
			"MECHANISTIC SYNERGY: Immune checkpoint inhibition combined with anti-angiogenesis agents has shown clinical synergy by normalizing tumor vasculature.")
		result.SynergyScore += 4
		result.InteractionType = domain.InteractionPotentiallySynergistic
	}

	if (a.checkpoint && b.chemotherapy) || (b.checkpoint && a.chemotherapy) {
		result.Analysis = append(result.Analysis,
			"IMMUNOGENIC PRIMING: Chemotherapy may release tumor antigens, enhancing the efficacy of the checkpoint inhibitor.")
		result.SynergyScore += 2
		result.InteractionType = domain.InteractionAdditiveSynergistic
	}
}

func applySideEffectOverlap(result *domain.CombinationResult, effectsA, effectsB []string) {
	shared := sharedLabels(effectsA, effectsB)
	count := len(shared)
	if count == 0 {
		return
	}

	listed := shared
	if len(listed) > 3 {
		listed = listed[:3]
	}
	list := titleCase(strings.Join(listed, ", "))
	if count > 3 {
		list += fmt.Sprintf(", and %d others", count-3)
	}

	label := "Moderate"
	if count > 3 {
		label = "High"
	}

	result.SafetyWarnings = append(result.SafetyWarnings,
		fmt.Sprintf("TOXICITY OVERLAP (%s): Shared risk of %s. Cumulative burden may require dose reduction.", label, list))

	if count <= 2 {
		result.SynergyScore -= 1
	} else {
		result.SynergyScore -= 2
	}
}

// sharedLabels returns the lowercased intersection of two label lists in
// alphabetical order. Empty labels are ignored.
func sharedLabels(a, b []string) []string {
	inA := make(map[string]struct{}, len(a))
	for _, v := range a {
		if v = strings.ToLower(v); v != "" {
			inA[v] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var shared []string
	for _, v := range b {
		v = strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := inA[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		shared = append(shared, v)
	}
	sort.Strings(shared)
	return shared
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			sb.WriteRune(unicode.ToUpper(r))
		case isLetter:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return sb.String()
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
