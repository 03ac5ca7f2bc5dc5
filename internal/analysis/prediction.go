package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

// Historical success rates by phase used as the starting estimate
const (
	phase1BaseRate  = 0.65
	phase2BaseRate  = 0.35
	phase3BaseRate  = 0.55
	defaultBaseRate = 0.50

	minProbability     = 0.01
	maxProbability     = 0.99
	confidenceHalfSpan = 0.10
)

// PredictTrialOutcome estimates the probability of success of a trial from
// its phase, modality, enrollment and therapeutic area.
func PredictTrialOutcome(params domain.TrialParams) *domain.TrialPrediction {
	risks := []string{}
	recs := []string{}

	phase := params.Phase
	isPhase3 := strings.Contains(phase, "3")

	var pos float64
	switch {
	case strings.Contains(phase, "1"):
		pos = phase1BaseRate
		recs = append(recs, "Focus on safety signals and PK/PD correlation.")
	case strings.Contains(phase, "2"):
		pos = phase2BaseRate
		risks = append(risks, "Phase 2 historically has the highest attrition rate.")
		recs = append(recs, "Ensure robust dose-finding to avoid Phase 3 failure.")
	case isPhase3:
		pos = phase3BaseRate
		recs = append(recs, "Statistical power is critical here.")
	default:
		pos = defaultBaseRate
	}

	if params.IsBiologic {
		pos += 0.10
		recs = append(recs, "Biologics historically show higher approval rates than small molecules.")
	}

	n := params.NParticipants
	switch {
	case n < 30:
		pos -= 0.15
		risks = append(risks, fmt.Sprintf("Very low sample size (N=%d) significantly increases risk of being underpowered.", n))
	case n < 100 && isPhase3:
		pos -= 0.20
		risks = append(risks, "Sample size appears critically low for a Phase 3 study.")
		recs = append(recs, "Consider increasing enrollment to reach statistical significance.")
	case n > 500:
		pos += 0.05
		recs = append(recs, "Robust sample size increases confidence in detecting effect size.")
	}

	area := strings.ToLower(params.TherapeuticArea)
	if strings.Contains(area, "oncology") {
		pos -= 0.05
		risks = append(risks, "Oncology trials have historically higher failure rates.")
	} else if strings.Contains(area, "cardio") && n < 1000 && isPhase3 {
		pos -= 0.10
		risks = append(risks, "Cardiovascular outcomes usually require N > 1000.")
	}

	pos = math.Max(minProbability, math.Min(maxProbability, pos))
	low := math.Max(0, pos-confidenceHalfSpan)
	high := math.Min(1, pos+confidenceHalfSpan)

	return &domain.TrialPrediction{
		ProductName:          params.ProductName,
		ProbabilityOfSuccess: asPercent(pos),
		ConfidenceInterval:   [2]float64{asPercent(low), asPercent(high)},
		RiskFactors:          risks,
		Recommendations:      recs,
	}
}

// asPercent converts a probability to a percentage rounded to one decimal
func asPercent(p float64) float64 {
	return math.Round(p*1000) / 10
}
