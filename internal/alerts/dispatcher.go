package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

// Event announces a newly ingested intelligence record
type Event struct {
	ID          string            `json:"id"`
	ProductID   int64             `json:"product_id"`
	ProductName string            `json:"product_name"`
	Kind        domain.SourceType `json:"kind"`
	Title       string            `json:"title"`
	URL         string            `json:"url,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(product *domain.Product, kind domain.SourceType, title, url string) Event {
	return Event{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Kind:        kind,
		Title:       title,
		URL:         url,
		CreatedAt:   time.Now().UTC(),
	}
}

// Publisher delivers an event to one user
type Publisher interface {
	Publish(userID int64, event Event) bool
}

// Dispatcher routes events to the users subscribed to their product
type Dispatcher struct {
	store     Store
	publisher Publisher
	logger    *logrus.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(store Store, publisher Publisher, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Dispatch publishes an event to every subscriber that wants its kind and
// returns the number of deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (int, error) {
	subs, err := d.store.Subscribers(ctx, event.ProductID)
	if err != nil {
		return 0, fmt.Errorf("loading subscribers of product %d: %w", event.ProductID, err)
	}

	delivered := 0
	for _, sub := range subs {
		if !sub.Wants(event.Kind) {
			continue
		}
		if d.publisher.Publish(sub.UserID, event) {
			delivered++
		}
	}

	d.logger.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"product_id":  event.ProductID,
		"kind":        event.Kind,
		"subscribers": len(subs),
		"delivered":   delivered,
	}).Debug("Alert dispatched")

	return delivered, nil
}
