package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/averros/tradecore/internal/events"
	"github.com/averros/tradecore/internal/utils"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

// EventsStreamHandler streams bus events to WebSocket clients. Clients may
// filter with ?types=ORDER_FILLED,POSITION_CLOSED; without a filter they
// receive everything.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// streamFrame is the wire format for one event
type streamFrame struct {
	Type        string      `json:"type"`
	Module      string      `json:"module,omitempty"`
	PortfolioID int64       `json:"portfolio_id,omitempty"`
	SessionID   *string     `json:"session_id,omitempty"`
	Timestamp   string      `json:"timestamp"`
	Data        interface{} `json:"data,omitempty"`
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (WebSocket)
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Same-host dashboard clients; CORS handled upstream
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	var allowedTypes map[events.EventType]bool
	if types := utils.ParseCSV(r.URL.Query().Get("types")); types != nil {
		allowedTypes = make(map[events.EventType]bool, len(types))
		for _, t := range types {
			allowedTypes[events.EventType(t)] = true
		}
	}

	h.log.Info().
		Int("type_filter", len(allowedTypes)).
		Msg("Client connected to event stream")

	// Buffered so a slow client drops events instead of blocking the bus
	eventChan := make(chan *events.Event, 100)
	var closed atomic.Bool

	// The bus has no unsubscribe; a closed flag turns this handler into a
	// no-op once the client is gone.
	h.eventBus.SubscribeAll(func(event *events.Event) {
		if closed.Load() {
			return
		}
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	defer closed.Store(true)

	ctx := r.Context()

	if err := h.writeFrame(ctx, conn, streamFrame{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			frame := streamFrame{
				Type:        string(event.Type),
				Module:      event.Module,
				PortfolioID: event.PortfolioID,
				SessionID:   event.SessionID,
				Timestamp:   event.Timestamp.Format(time.RFC3339),
				Data:        event.Data,
			}
			if err := h.writeFrame(ctx, conn, frame); err != nil {
				h.log.Debug().Err(err).Msg("Event stream write failed, closing")
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Event stream ping failed, closing")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}
