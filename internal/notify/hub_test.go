package notify

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/domain"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger, nil)
}

func dial(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, userID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(userID) > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_PublishDeliversToUser(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := dial(t, hub, 7)

	event := alerts.NewEvent(&domain.Product{ID: 1, Name: "Ozempic"}, domain.SourceClinicalTrial, "SUSTAIN-11", "")
	assert.True(t, hub.Publish(7, event))
	assert.False(t, hub.Publish(8, event), "user without connections")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got alerts.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "Ozempic", got.ProductName)
	assert.Equal(t, domain.SourceClinicalTrial, got.Kind)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := dial(t, hub, 3)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Connections(3) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseRefusesNewClients(t *testing.T) {
	hub := newTestHub()
	conn := dial(t, hub, 5)
	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Connections(5))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "requests without an origin are allowed")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}
