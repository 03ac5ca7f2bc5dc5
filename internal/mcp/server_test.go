package mcp

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/config"
	"github.com/letscience-intel-server/internal/domain"
)

func newTestServer(t *testing.T, cfg *config.LiteConfig) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if cfg == nil {
		cfg = &config.LiteConfig{CacheMaxItems: 16, CacheTTL: time.Minute}
	}
	s, err := NewServer(cfg, logger)
	require.NoError(t, err)
	return s
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, nil)
	assert.NotNil(t, s.mcpServer)
	assert.NotEmpty(t, s.catalog.Products)

	_, err := NewServer(&config.LiteConfig{CatalogFile: "/nonexistent/catalog.yaml"}, logrus.New())
	assert.Error(t, err)

	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - mechanism: Agonist\n    keywords: [inhibitor]\n"), 0644))
	custom := newTestServer(t, &config.LiteConfig{MechanismRulesFile: rules})
	_, out, err := custom.classifyMechanism(context.Background(), nil, ClassifyMechanismParams{Text: "kinase inhibitor"})
	require.NoError(t, err)
	assert.Equal(t, domain.MechanismAgonist, out.(ClassifyMechanismResult).MechanismType)
}

func TestAnalyzeCombination(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	t.Run("catalog names", func(t *testing.T) {
		result, out, err := s.analyzeCombination(ctx, nil, AnalyzeCombinationParams{
			DrugA: domain.DrugProfile{Name: "Keytruda"},
			DrugB: domain.DrugProfile{Name: "Opdivo"},
		})
		require.NoError(t, err)
		assert.False(t, result.IsError)

		combo := out.(*domain.CombinationResult)
		assert.Equal(t, domain.InteractionAntagonism, combo.InteractionType)
		assert.Equal(t, domain.MechanismAntagonist, combo.DrugA.MechanismType)
		assert.Contains(t, text(t, result), "Keytruda + Opdivo")
		assert.Equal(t, 1, s.cache.Len())

		_, again, err := s.analyzeCombination(ctx, nil, AnalyzeCombinationParams{
			DrugA: domain.DrugProfile{Name: "Keytruda"},
			DrugB: domain.DrugProfile{Name: "Opdivo"},
		})
		require.NoError(t, err)
		assert.Equal(t, combo, again.(*domain.CombinationResult))
		assert.Equal(t, 1, s.cache.Len(), "second call is served from cache")
	})

	t.Run("ad hoc profiles", func(t *testing.T) {
		_, out, err := s.analyzeCombination(ctx, nil, AnalyzeCombinationParams{
			DrugA: domain.DrugProfile{Name: "Drug X", Description: "GLP-1 receptor agonist", Targets: []string{"GLP-1R"}},
			DrugB: domain.DrugProfile{Name: "Drug Y", Description: "GLP-1 receptor antagonist", Targets: []string{"GLP-1R"}},
		})
		require.NoError(t, err)
		combo := out.(*domain.CombinationResult)
		assert.Equal(t, domain.InteractionAntagonistic, combo.InteractionType)
		assert.Equal(t, 1, combo.SynergyScore)
	})

	t.Run("missing names", func(t *testing.T) {
		result, out, err := s.analyzeCombination(ctx, nil, AnalyzeCombinationParams{DrugA: domain.DrugProfile{Name: "Keytruda"}})
		require.NoError(t, err)
		assert.Nil(t, out)
		assert.True(t, result.IsError)
		assert.Contains(t, text(t, result), "drug_b.name")
	})
}

func TestCompleteProfile(t *testing.T) {
	s := newTestServer(t, nil)

	p := s.completeProfile(domain.DrugProfile{Name: "pembrolizumab", Indication: "NSCLC"})
	assert.Equal(t, "pembrolizumab", p.Name)
	assert.Equal(t, "NSCLC", p.Indication, "caller fields win")
	assert.NotEmpty(t, p.Description)
	assert.NotEmpty(t, p.Targets)

	unknown := domain.DrugProfile{Name: "Unlisted"}
	assert.Equal(t, unknown, s.completeProfile(unknown))
}

func TestPredictTrialOutcome(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, out, err := s.predictTrialOutcome(ctx, nil, domain.TrialParams{
		ProductName:   "Ozempic",
		Phase:         "Phase 3",
		NParticipants: 800,
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	prediction := out.(*domain.TrialPrediction)
	assert.Equal(t, "Ozempic", prediction.ProductName)
	assert.Contains(t, text(t, result), "probability of success")

	result, out, err = s.predictTrialOutcome(ctx, nil, domain.TrialParams{Phase: "Phase 2"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.True(t, result.IsError)
}

func TestExtractionTools(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, out, err := s.extractSideEffects(ctx, nil, ExtractTextParams{Text: "Most common: nausea, FATIGUE and rash."})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nausea", "Fatigue", "Rash"}, out.(ExtractSideEffectsResult).SideEffects)

	_, out, err = s.extractSideEffects(ctx, nil, ExtractTextParams{})
	require.NoError(t, err)
	assert.Empty(t, out.(ExtractSideEffectsResult).SideEffects)

	_, out, err = s.extractSynthesisSteps(ctx, nil, ExtractTextParams{
		Text: "The amine was reacted with acetyl chloride. The weather was fine. The product was purified by HPLC.",
	})
	require.NoError(t, err)
	assert.Len(t, out.(ExtractSynthesisStepsResult).Steps, 2)
}
