package alerts

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
)

type recordingPublisher struct {
	mu        sync.Mutex
	delivered map[int64][]Event
	offline   map[int64]bool
}

func (p *recordingPublisher) Publish(userID int64, event Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offline[userID] {
		return false
	}
	if p.delivered == nil {
		p.delivered = make(map[int64][]Event)
	}
	p.delivered[userID] = append(p.delivered[userID], event)
	return true
}

func TestSubscription_Wants(t *testing.T) {
	sub := &Subscription{AlertNewTrials: true}
	assert.True(t, sub.Wants(domain.SourceClinicalTrial))
	assert.False(t, sub.Wants(domain.SourcePatent))
	assert.False(t, sub.Wants(domain.SourceArticle))
	assert.True(t, sub.Wants(domain.SourceConference))
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	defer store.Close()

	_, err := store.Subscribe(ctx, NewSubscription(1, 10))
	require.NoError(t, err)
	noPatents := NewSubscription(2, 10)
	noPatents.AlertNewPatents = false
	_, err = store.Subscribe(ctx, noPatents)
	require.NoError(t, err)
	_, err = store.Subscribe(ctx, NewSubscription(3, 10))
	require.NoError(t, err)
	_, err = store.Subscribe(ctx, NewSubscription(4, 11))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	publisher := &recordingPublisher{offline: map[int64]bool{3: true}}
	dispatcher := NewDispatcher(store, publisher, logger)

	product := &domain.Product{ID: 10, Name: "Keytruda"}
	event := NewEvent(product, domain.SourcePatent, "New PD-1 antibody patent", "https://patents.example/1")
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "Keytruda", event.ProductName)

	delivered, err := dispatcher.Dispatch(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, publisher.delivered[1], 1)
	assert.Empty(t, publisher.delivered[2])
	assert.Empty(t, publisher.delivered[4])

	delivered, err = dispatcher.Dispatch(ctx, NewEvent(product, domain.SourceClinicalTrial, "KEYNOTE-999", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
}
