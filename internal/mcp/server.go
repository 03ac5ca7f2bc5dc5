// Package mcp exposes the analysis engines as Model Context Protocol tools.
// The server runs over stdio and needs no database: drug names resolve
// against the curated catalog and results are cached in memory.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/catalog"
	"github.com/letscience-intel-server/internal/config"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/pkg/external"
)

const (
	serverName    = "letscience-mcp-server"
	serverVersion = "v1.0.0"
)

// Server is the standalone MCP server
type Server struct {
	mcpServer *mcp.Server
	scorer    *analysis.InteractionScorer
	catalog   *catalog.Catalog
	cache     *external.TieredCache
	logger    *logrus.Logger
}

// NewServer builds the server from the lite configuration. Optional catalog
// and mechanism rule files replace the built-in ones.
func NewServer(cfg *config.LiteConfig, logger *logrus.Logger) (*Server, error) {
	cat := catalog.Default()
	if path := cfg.CatalogPath(); path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = loaded
	}

	rules := analysis.DefaultMechanismRules()
	if path := cfg.MechanismRulesPath(); path != "" {
		loaded, err := analysis.LoadMechanismRules(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load mechanism rules: %w", err)
		}
		rules = loaded
	}

	s := &Server{
		scorer:  analysis.NewInteractionScorer(analysis.NewMechanismClassifier(rules)),
		catalog: cat,
		cache: external.NewTieredCache(domain.CacheConfig{
			MemoryMaxSize: cfg.CacheMaxItems,
			MemoryTTL:     cfg.CacheTTL,
			DefaultTTL:    cfg.CacheTTL,
		}, nil, logger),
		logger: logger,
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.registerTools()

	logger.WithFields(logrus.Fields{
		"catalog_products": len(cat.Products),
		"mechanism_rules":  len(rules),
	}).Info("MCP server initialized")
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "analyze_combination",
		Description: "Score the synergy of two drugs from their mechanisms, shared targets and side effects. " +
			"Profiles that only carry a name are completed from the curated catalog.",
	}, s.analyzeCombination)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_mechanism",
		Description: "Classify a mechanism of action description as Agonist, Antagonist or Unknown.",
	}, s.classifyMechanism)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_trial_outcome",
		Description: "Estimate the probability of success of a clinical trial with risk factors and recommendations.",
	}, s.predictTrialOutcome)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "extract_side_effects",
		Description: "List the common adverse events mentioned in free text such as a drug label.",
	}, s.extractSideEffects)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "extract_synthesis_steps",
		Description: "List the sentences of a text that describe chemical synthesis steps.",
	}, s.extractSynthesisSteps)

	s.logger.WithField("tool_count", 5).Info("Registered MCP tools")
}

// Run serves MCP over stdio until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting LetScience MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
