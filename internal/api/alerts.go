package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/middleware"
)

type subscriptionView struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Indication  string `json:"indication,omitempty"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := s.deps.Products.GetByID(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	user, _ := middleware.CurrentUser(c)
	created, err := s.deps.Alerts.Subscribe(c.Request.Context(), alerts.NewSubscription(user.ID, id))
	if err != nil {
		s.respondError(c, err)
		return
	}
	message := "Subscribed to product alerts"
	if !created {
		message = "Already subscribed"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "subscribed": true})
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)
	removed, err := s.deps.Alerts.Unsubscribe(c.Request.Context(), user.ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		middleware.Abort(c, http.StatusNotFound, domain.CodeNotFound, "Subscription not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed from product alerts", "subscribed": false})
}

// handleCheckSubscription answers false for anonymous callers
func (s *Server) handleCheckSubscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"subscribed": false})
		return
	}
	subscribed, err := s.deps.Alerts.IsSubscribed(c.Request.Context(), user.ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
}

// handleMySubscriptions lists the caller's subscriptions with product
// names. Subscriptions to deleted products are left out.
func (s *Server) handleMySubscriptions(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	subs, err := s.deps.Alerts.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		product, err := s.deps.Products.GetByID(c.Request.Context(), sub.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			s.respondError(c, err)
			return
		}
		views = append(views, subscriptionView{
			ProductID:   product.ID,
			ProductName: product.Name,
			Indication:  product.TargetIndication,
		})
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": views})
}

// handleAlertStream upgrades to a websocket that receives the caller's alerts
func (s *Server) handleAlertStream(c *gin.Context) {
	if s.deps.Hub == nil {
		middleware.Abort(c, http.StatusServiceUnavailable, domain.CodeInternalServer, "Alert stream is not available")
		return
	}
	user, _ := middleware.CurrentUser(c)
	s.deps.Hub.ServeWS(c.Writer, c.Request, user.ID)
}
