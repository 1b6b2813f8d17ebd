package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/averros/tradecore/internal/database"
	"github.com/averros/tradecore/internal/events"
)

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	dataDir := t.TempDir()

	portfolioDB, err := database.New(database.Config{
		Path: filepath.Join(dataDir, "portfolio.db"), Profile: database.ProfileStandard, Name: "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, portfolioDB.Migrate())
	t.Cleanup(func() { _ = portfolioDB.Close() })

	ledgerDB, err := database.New(database.Config{
		Path: filepath.Join(dataDir, "ledger.db"), Profile: database.ProfileLedger, Name: "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, ledgerDB.Migrate())
	t.Cleanup(func() { _ = ledgerDB.Close() })

	bus := events.NewBus(log)
	srv := New(Config{
		Log:         log,
		Port:        0,
		DataDir:     dataDir,
		PortfolioDB: portfolioDB,
		LedgerDB:    ledgerDB,
		EventBus:    bus,
	})
	return srv, bus
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])

	databases, ok := body["databases"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", databases["portfolio"])
	assert.Equal(t, "ok", databases["ledger"])
}

func TestHandleDatabaseStats(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Contains(t, body.Databases, "portfolio")
	require.Contains(t, body.Databases, "ledger")
	assert.True(t, body.Databases["portfolio"].Healthy)
	assert.True(t, body.Databases["ledger"].Healthy)
}

func TestEventsStream_RelaysBusEvents(t *testing.T) {
	srv, bus := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/events/stream"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the connection acknowledgement
	var hello map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello["type"])

	bus.Publish(&events.Event{
		Type:        events.OrderFilled,
		Timestamp:   time.Now(),
		Module:      "execution",
		PortfolioID: 1,
	})

	var frame map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, string(events.OrderFilled), frame["type"])
	assert.Equal(t, "execution", frame["module"])
}

func TestEventsStream_TypeFilter(t *testing.T) {
	srv, bus := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/events/stream?types=POSITION_CLOSED"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &hello))

	// A filtered-out event must not arrive; the matching one must
	bus.Publish(&events.Event{Type: events.OrderFilled, Timestamp: time.Now(), Module: "execution"})
	bus.Publish(&events.Event{Type: events.PositionClosed, Timestamp: time.Now(), Module: "execution"})

	var frame map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, string(events.PositionClosed), frame["type"])
}
