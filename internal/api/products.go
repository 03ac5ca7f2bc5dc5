package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/middleware"
)

// productPatch carries the fields of a partial product update
type productPatch struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	TargetIndication *string `json:"target_indication"`
	TherapeuticArea  *string `json:"therapeutic_area"`
	DevelopmentPhase *string `json:"development_phase"`
	MOAVideoURL      *string `json:"moa_video_url"`
}

func (p *productPatch) apply(product *domain.Product) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&product.Name, p.Name)
	set(&product.Description, p.Description)
	set(&product.TargetIndication, p.TargetIndication)
	set(&product.TherapeuticArea, p.TherapeuticArea)
	set(&product.DevelopmentPhase, p.DevelopmentPhase)
	set(&product.MOAVideoURL, p.MOAVideoURL)
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		badRequest(c, "invalid product body")
		return
	}
	product.ID = 0
	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.deps.Products.Create(c.Request.Context(), &product); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &product)
}

func (s *Server) handleListProducts(c *gin.Context) {
	skip, ok := queryInt(c, "skip", 0, 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100, 1000)
	if !ok {
		return
	}
	products, err := s.deps.Products.List(c.Request.Context(), limit, skip)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := s.deps.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch productPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid product body")
		return
	}
	product, err := s.deps.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	patch.apply(product)
	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.deps.Products.Update(c.Request.Context(), product); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.deps.Products.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleProductIntelligence(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := s.deps.Intelligence.ProductIntelligence(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleDossier renders the product intelligence as a PDF attachment
func (s *Server) handleDossier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := s.deps.Intelligence.ProductIntelligence(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Dossier.Generate(view, &buf); err != nil {
		s.respondError(c, fmt.Errorf("rendering dossier: %w", err))
		return
	}

	filename := strings.ReplaceAll(view.Product.Name, " ", "_") + "_Dossier.pdf"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) handleAddSideEffect(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Effect string `json:"effect"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid side effect body")
		return
	}
	body.Effect = strings.TrimSpace(body.Effect)
	if body.Effect == "" {
		s.respondError(c, domain.NewValidationError("effect", "is required", body.Effect))
		return
	}
	if _, err := s.deps.Products.GetByID(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	created, err := s.deps.Details.AddSideEffect(c.Request.Context(), id, body.Effect)
	if err != nil {
		s.respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"product_id": id, "effect": body.Effect, "created": created})
}

func (s *Server) handleAddPharmacodynamics(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var pd domain.Pharmacodynamics
	if err := c.ShouldBindJSON(&pd); err != nil {
		badRequest(c, "invalid pharmacodynamics body")
		return
	}
	pd.ID = 0
	pd.ProductID = id
	if strings.TrimSpace(pd.Parameter) == "" {
		s.respondError(c, domain.NewValidationError("parameter", "is required", pd.Parameter))
		return
	}
	if pd.MechanismOfActionType != "" {
		mech, known := domain.ParseMechanismType(pd.MechanismOfActionType)
		if !known {
			s.respondError(c, domain.NewValidationError("mechanism_of_action_type", "must be Agonist, Antagonist or Unknown", pd.MechanismOfActionType))
			return
		}
		pd.MechanismOfActionType = string(mech)
	}
	if _, err := s.deps.Products.GetByID(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.deps.Details.AddPharmacodynamics(c.Request.Context(), &pd); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &pd)
}

// handleIngest runs the ingestion pipeline for one product
func (s *Server) handleIngest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if s.deps.Ingest == nil {
		middleware.Abort(c, http.StatusServiceUnavailable, domain.CodeExternalAPI, "Ingestion is not configured")
		return
	}
	product, err := s.deps.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	report, err := s.deps.Ingest.IngestProduct(c.Request.Context(), product)
	if err != nil {
		s.respondError(c, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	s.logger.WithFields(logrus.Fields{
		"product_id": id,
		"run_id":     report.RunID,
		"user_id":    user.ID,
		"inserted":   report.Inserted(),
	}).Info("Manual ingestion finished")

	c.JSON(http.StatusOK, report)
}
