package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/domain"
)

// AnalyzeCombinationParams defines parameters for analyze_combination
type AnalyzeCombinationParams struct {
	DrugA            domain.DrugProfile       `json:"drug_a" jsonschema:"first drug; name is required"`
	DrugB            domain.DrugProfile       `json:"drug_b" jsonschema:"second drug; name is required"`
	KnownInteraction *domain.KnownInteraction `json:"known_interaction,omitempty" jsonschema:"curated interaction between the two drugs"`
}

// ClassifyMechanismParams defines parameters for classify_mechanism
type ClassifyMechanismParams struct {
	Text string `json:"text" jsonschema:"mechanism of action or product description"`
}

// ClassifyMechanismResult is returned by classify_mechanism
type ClassifyMechanismResult struct {
	MechanismType domain.MechanismType `json:"mechanism_type"`
}

// ExtractTextParams defines parameters for the extraction tools
type ExtractTextParams struct {
	Text string `json:"text" jsonschema:"free text to scan"`
}

// ExtractSideEffectsResult is returned by extract_side_effects
type ExtractSideEffectsResult struct {
	SideEffects []string `json:"side_effects"`
}

// ExtractSynthesisStepsResult is returned by extract_synthesis_steps
type ExtractSynthesisStepsResult struct {
	Steps []string `json:"steps"`
}

func (s *Server) analyzeCombination(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeCombinationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "analyze_combination").Info("Tool invoked")

	if strings.TrimSpace(params.DrugA.Name) == "" || strings.TrimSpace(params.DrugB.Name) == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("drug_a.name and drug_b.name are required")), nil, nil
	}

	a := s.completeProfile(params.DrugA)
	b := s.completeProfile(params.DrugB)
	known := params.KnownInteraction
	if known == nil {
		known = s.catalog.KnownInteraction(a.Name, b.Name)
	}

	key, err := combinationKey(a, b, known)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}
	var result domain.CombinationResult
	if !s.cache.Get(ctx, key, &result) {
		result = *s.scorer.Score(a, b, known)
		s.cache.Set(ctx, key, &result)
	}

	return s.jsonResult(fmt.Sprintf("%s + %s: %s (synergy score %d/10)",
		result.DrugA.Name, result.DrugB.Name, result.InteractionType, result.SynergyScore), &result)
}

// completeProfile fills the empty fields of a name-only profile from the
// catalog. Fields given by the caller win.
func (s *Server) completeProfile(p domain.DrugProfile) domain.DrugProfile {
	entry, ok := s.catalog.Lookup(p.Name)
	if !ok {
		return p
	}
	curated := entry.Profile()
	if p.Description == "" {
		p.Description = curated.Description
	}
	if p.Indication == "" {
		p.Indication = curated.Indication
	}
	if len(p.Targets) == 0 {
		p.Targets = curated.Targets
	}
	if len(p.SideEffects) == 0 {
		p.SideEffects = curated.SideEffects
	}
	return p
}

func combinationKey(a, b domain.DrugProfile, known *domain.KnownInteraction) (string, error) {
	raw, err := json.Marshal([]interface{}{a, b, known})
	if err != nil {
		return "", err
	}
	// names keep their case in results, so the key must not fold it
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("combination:%x", sum[:12]), nil
}

func (s *Server) classifyMechanism(ctx context.Context, req *mcp.CallToolRequest, params ClassifyMechanismParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "classify_mechanism").Info("Tool invoked")

	result := ClassifyMechanismResult{MechanismType: s.scorer.Classifier().Classify(params.Text)}
	return s.jsonResult(fmt.Sprintf("Mechanism: %s", result.MechanismType), result)
}

func (s *Server) predictTrialOutcome(ctx context.Context, req *mcp.CallToolRequest, params domain.TrialParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "predict_trial_outcome").Info("Tool invoked")

	if err := params.Validate(); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}
	prediction := analysis.PredictTrialOutcome(params)
	return s.jsonResult(fmt.Sprintf("%s: %.1f%% probability of success",
		prediction.ProductName, prediction.ProbabilityOfSuccess), prediction)
}

func (s *Server) extractSideEffects(ctx context.Context, req *mcp.CallToolRequest, params ExtractTextParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "extract_side_effects").Info("Tool invoked")

	result := ExtractSideEffectsResult{SideEffects: analysis.ExtractSideEffects(params.Text)}
	return s.jsonResult(fmt.Sprintf("Found %d side effects", len(result.SideEffects)), result)
}

func (s *Server) extractSynthesisSteps(ctx context.Context, req *mcp.CallToolRequest, params ExtractTextParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "extract_synthesis_steps").Info("Tool invoked")

	result := ExtractSynthesisStepsResult{Steps: analysis.ExtractSynthesisSteps(params.Text)}
	return s.jsonResult(fmt.Sprintf("Found %d synthesis steps", len(result.Steps)), result)
}

// jsonResult returns a summary line followed by the indented JSON result
func (s *Server) jsonResult(summary string, result interface{}) (*mcp.CallToolResult, any, error) {
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(body)},
		},
	}, result, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
