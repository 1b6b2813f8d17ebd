package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging. Publish failures are logged,
// never surfaced to the caller: event delivery must not fail a trade.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit emits a typed event scoped to a portfolio
func (m *Manager) Emit(module string, portfolioID int64, sessionID *string, data EventData) {
	if data == nil {
		return
	}

	event := &Event{
		Type:        data.EventType(),
		Timestamp:   time.Now(),
		Module:      module,
		PortfolioID: portfolioID,
		SessionID:   sessionID,
		Data:        data,
	}

	m.bus.Publish(event)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Int64("portfolio_id", portfolioID).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an ErrorOccurred event
func (m *Manager) EmitError(module string, portfolioID int64, err error, context map[string]interface{}) {
	m.Emit(module, portfolioID, nil, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// Bus returns the underlying bus for subscription
func (m *Manager) Bus() *Bus {
	return m.bus
}
