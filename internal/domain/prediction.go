package domain

import "strings"

// TrialParams describes a planned clinical trial
type TrialParams struct {
	ProductName     string `json:"product_name"`
	IsBiologic      bool   `json:"is_biologic"`
	Phase           string `json:"phase"`
	NParticipants   int    `json:"n_participants"`
	TherapeuticArea string `json:"therapeutic_area,omitempty"`
}

// Validate checks trial parameters and fills defaults
func (p *TrialParams) Validate() error {
	if strings.TrimSpace(p.ProductName) == "" {
		return NewValidationError("product_name", "is required", p.ProductName)
	}
	if strings.TrimSpace(p.Phase) == "" {
		return NewValidationError("phase", "is required", p.Phase)
	}
	if p.NParticipants < 0 {
		return NewValidationError("n_participants", "must not be negative", p.NParticipants)
	}
	if p.TherapeuticArea == "" {
		p.TherapeuticArea = "General"
	}
	return nil
}

// TrialPrediction is the heuristic probability-of-success estimate. Values
// are percentages rounded to one decimal.
type TrialPrediction struct {
	ProductName          string     `json:"product_name"`
	ProbabilityOfSuccess float64    `json:"probability_of_success"`
	ConfidenceInterval   [2]float64 `json:"confidence_interval"`
	RiskFactors          []string   `json:"risk_factors"`
	Recommendations      []string   `json:"recommendations"`
}
