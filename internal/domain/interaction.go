package domain

import (
	"strings"
	"time"
)

// MechanismType is the inferred pharmacological action of a drug
type MechanismType string

const (
	MechanismAgonist    MechanismType = "Agonist"
	MechanismAntagonist MechanismType = "Antagonist"
	MechanismUnknown    MechanismType = "Unknown"
)

// ParseMechanismType maps a case-insensitive name onto a MechanismType
func ParseMechanismType(s string) (MechanismType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agonist":
		return MechanismAgonist, true
	case "antagonist":
		return MechanismAntagonist, true
	case "unknown":
		return MechanismUnknown, true
	}
	return MechanismUnknown, false
}

// Interaction categories produced by the combination scorer. Curated
// interaction records may carry any free-text category; Synergy and
// Antagonism are the two that move the score.
const (
	InteractionNeutral                = "Neutral"
	InteractionSynergy                = "Synergy"
	InteractionAntagonism             = "Antagonism"
	InteractionAntagonistic           = "Antagonistic"
	InteractionPotentiallySynergistic = "Potentially Synergistic"
	InteractionAdditiveSynergistic    = "Additive / Synergistic"
)

// SeverityHigh marks a curated interaction as critical
const SeverityHigh = "High"

// DrugInteraction is a curated interaction between two products. The pair is
// unordered; repositories store it with DrugAID < DrugBID.
type DrugInteraction struct {
	ID                int64     `json:"id"`
	DrugAID           int64     `json:"drug_a_id"`
	DrugBID           int64     `json:"drug_b_id"`
	InteractionType   string    `json:"interaction_type"`
	EffectDescription string    `json:"effect_description"`
	Severity          string    `json:"severity,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate checks a curated interaction before it is stored
func (i *DrugInteraction) Validate() error {
	if i.DrugAID <= 0 {
		return NewValidationError("drug_a_id", "must be positive", i.DrugAID)
	}
	if i.DrugBID <= 0 {
		return NewValidationError("drug_b_id", "must be positive", i.DrugBID)
	}
	if i.DrugAID == i.DrugBID {
		return NewValidationError("drug_b_id", "must differ from drug_a_id", i.DrugBID)
	}
	if strings.TrimSpace(i.InteractionType) == "" {
		return NewValidationError("interaction_type", "is required", i.InteractionType)
	}
	return nil
}

// KnownInteraction is the part of a curated record the scorer reads
type KnownInteraction struct {
	Type              string `json:"type"`
	EffectDescription string `json:"effect_description"`
	Severity          string `json:"severity,omitempty"`
}

// DrugProfile is everything the combination scorer needs to know about a drug
type DrugProfile struct {
	Name        string   `json:"name"`
	Indication  string   `json:"indication,omitempty"`
	Description string   `json:"description,omitempty"`
	Targets     []string `json:"targets,omitempty"`
	SideEffects []string `json:"side_effects,omitempty"`
}

// DrugSummary is the per-drug header of a combination result
type DrugSummary struct {
	Name          string        `json:"name"`
	MechanismType MechanismType `json:"mechanism_type"`
	Indication    string        `json:"indication"`
}

// CombinationResult is the outcome of scoring a drug pair
type CombinationResult struct {
	DrugA           DrugSummary `json:"drug_a"`
	DrugB           DrugSummary `json:"drug_b"`
	SynergyScore    int         `json:"synergy_score"`
	InteractionType string      `json:"interaction_type"`
	Analysis        []string    `json:"analysis"`
	SafetyWarnings  []string    `json:"safety_warnings"`
}
