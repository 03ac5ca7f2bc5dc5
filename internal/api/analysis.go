package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/domain"
)

type combinationRequest struct {
	DrugAID int64 `json:"drug_a_id"`
	DrugBID int64 `json:"drug_b_id"`
}

type profilesRequest struct {
	DrugA            domain.DrugProfile       `json:"drug_a"`
	DrugB            domain.DrugProfile       `json:"drug_b"`
	KnownInteraction *domain.KnownInteraction `json:"known_interaction,omitempty"`
}

func (s *Server) handleCreateInteraction(c *gin.Context) {
	var interaction domain.DrugInteraction
	if err := c.ShouldBindJSON(&interaction); err != nil {
		badRequest(c, "invalid interaction body")
		return
	}
	interaction.ID = 0
	if err := interaction.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	for _, id := range []int64{interaction.DrugAID, interaction.DrugBID} {
		if _, err := s.deps.Products.GetByID(c.Request.Context(), id); err != nil {
			s.respondError(c, err)
			return
		}
	}
	if err := s.deps.Interactions.Create(c.Request.Context(), &interaction); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &interaction)
}

func (s *Server) handleListInteractions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := s.deps.Products.GetByID(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	interactions, err := s.deps.Interactions.ListForProduct(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if interactions == nil {
		interactions = []*domain.DrugInteraction{}
	}
	c.JSON(http.StatusOK, interactions)
}

// handleAnalyzeCombination scores two stored products
func (s *Server) handleAnalyzeCombination(c *gin.Context) {
	var req combinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid combination body")
		return
	}
	if req.DrugAID <= 0 {
		s.respondError(c, domain.NewValidationError("drug_a_id", "must be positive", req.DrugAID))
		return
	}
	if req.DrugBID <= 0 {
		s.respondError(c, domain.NewValidationError("drug_b_id", "must be positive", req.DrugBID))
		return
	}
	result, err := s.deps.Combination.Analyze(c.Request.Context(), req.DrugAID, req.DrugBID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleAnalyzeProfiles scores two ad-hoc drug profiles
func (s *Server) handleAnalyzeProfiles(c *gin.Context) {
	var req profilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid profiles body")
		return
	}
	if strings.TrimSpace(req.DrugA.Name) == "" {
		s.respondError(c, domain.NewValidationError("drug_a.name", "is required", req.DrugA.Name))
		return
	}
	if strings.TrimSpace(req.DrugB.Name) == "" {
		s.respondError(c, domain.NewValidationError("drug_b.name", "is required", req.DrugB.Name))
		return
	}
	c.JSON(http.StatusOK, s.deps.Combination.AnalyzeProfiles(req.DrugA, req.DrugB, req.KnownInteraction))
}

func (s *Server) handleClassifyMechanism(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid mechanism body")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mechanism_type": s.deps.Classifier.Classify(req.Text)})
}

func (s *Server) handlePredictTrial(c *gin.Context) {
	var params domain.TrialParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, "invalid trial parameters")
		return
	}
	if err := params.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis.PredictTrialOutcome(params))
}
