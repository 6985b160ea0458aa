package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

func newTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil, nil)
	router := gin.New()
	router.GET("/ws", hub.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Welcome frame
	var welcome types.WSEvent
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system.connected", welcome.Type)

	return hub, conn
}

func TestPublishReachesClient(t *testing.T) {
	hub, conn := newTestHub(t)

	record := &types.ExtensionRecord{ID: "abc", State: types.StateInstalled}
	hub.Publish("extension.installed", record)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.WSEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "extension.installed", event.Type)
	require.NotNil(t, event.Extension)
	assert.NotZero(t, event.Timestamp)
}

func TestPublishWithoutRecord(t *testing.T) {
	hub, conn := newTestHub(t)

	hub.Publish("extension.removed", nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.WSEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "extension.removed", event.Type)
	assert.Nil(t, event.Extension)
}

func TestPingPong(t *testing.T) {
	_, conn := newTestHub(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.WSEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "pong", event.Type)
}

func TestClientCountTracksDisconnect(t *testing.T) {
	hub, conn := newTestHub(t)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()

	// The reader goroutine notices the close asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPublishToNobody(t *testing.T) {
	hub := NewHub(nil, nil)
	// Must not panic or block with zero clients.
	hub.Publish("extension.state", &types.ExtensionRecord{ID: "x"})
}
