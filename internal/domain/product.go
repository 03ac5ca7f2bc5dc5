package domain

import (
	"strings"
	"time"
)

// Product is a drug product tracked by the intelligence platform
type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	TargetIndication string    `json:"target_indication,omitempty"`
	TherapeuticArea  string    `json:"therapeutic_area,omitempty"`
	DevelopmentPhase string    `json:"development_phase,omitempty"`
	MOAVideoURL      string    `json:"moa_video_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a product
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "is required", p.Name)
	}
	if len(p.Name) > 255 {
		return NewValidationError("name", "must be at most 255 characters", len(p.Name))
	}
	return nil
}

// SideEffect is a reported adverse effect of a product
type SideEffect struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Effect    string `json:"effect"`
}

// Pharmacodynamics is a measured pharmacodynamic parameter. Target feeds the
// target-overlap heuristics of the interaction scorer.
type Pharmacodynamics struct {
	ID                    int64  `json:"id"`
	ProductID             int64  `json:"product_id"`
	Parameter             string `json:"parameter"`
	Value                 string `json:"value"`
	Unit                  string `json:"unit,omitempty"`
	Target                string `json:"target,omitempty"`
	MechanismOfActionType string `json:"mechanism_of_action_type,omitempty"`
}

// Milestone is a dated development event
type Milestone struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Date      time.Time `json:"date"`
	Event     string    `json:"event"`
	Phase     string    `json:"phase,omitempty"`
}

// Indication is an approved or investigated disease indication
type Indication struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	DiseaseName    string `json:"disease"`
	ApprovalStatus string `json:"status"`
	ReferenceURL   string `json:"ref_url,omitempty"`
	ReferenceTitle string `json:"ref_title,omitempty"`
}

// SynthesisStep is one extracted manufacturing step
type SynthesisStep struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	StepDescription string `json:"step_description"`
}

// SynthesisScheme is an illustrated synthesis route
type SynthesisScheme struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}
