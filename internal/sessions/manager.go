// Package sessions tracks trading session lifecycles. A session groups the
// trades produced by one strategy run so they can be queried together later;
// every trade carries an optional session id in the ledger.
package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStatus represents the lifecycle state of a trading session
type SessionStatus string

const (
	StatusActive  SessionStatus = "ACTIVE"
	StatusStopped SessionStatus = "STOPPED"
)

// Session represents one strategy run against a portfolio
type Session struct {
	ID          string        `json:"id"`
	PortfolioID int64         `json:"portfolio_id"`
	Strategy    string        `json:"strategy"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	StoppedAt   *time.Time    `json:"stopped_at,omitempty"`
}

// Manager owns the session lifecycle on top of a Store. The mutex serializes
// lifecycle transitions; the store only guarantees per-call safety.
type Manager struct {
	mu           sync.Mutex
	store        Store
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewManager creates a new session manager
func NewManager(store Store, eventManager *events.Manager, log zerolog.Logger) *Manager {
	return &Manager{
		store:        store,
		eventManager: eventManager,
		log:          log.With().Str("service", "sessions").Logger(),
	}
}

// Start opens a new session for a portfolio. Only one active session per
// portfolio is allowed; starting a second one is a validation error.
func (m *Manager) Start(portfolioID int64, strategy string) (*Session, error) {
	if portfolioID <= 0 {
		return nil, domain.NewValidationError("portfolio_id is required", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.store.List() {
		if s.PortfolioID == portfolioID && s.Status == StatusActive {
			return nil, domain.NewValidationError("portfolio already has an active session", map[string]interface{}{
				"portfolio_id": portfolioID,
				"session_id":   s.ID,
			})
		}
	}

	session := &Session{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Strategy:    strategy,
		Status:      StatusActive,
		StartedAt:   time.Now().UTC(),
	}
	if err := m.store.Put(session); err != nil {
		return nil, err
	}

	m.log.Info().
		Str("session_id", session.ID).
		Int64("portfolio_id", portfolioID).
		Str("strategy", strategy).
		Msg("Trading session started")

	m.eventManager.Emit("sessions", portfolioID, &session.ID, &events.SessionEventData{
		SessionID: session.ID,
		Status:    "started",
	})

	return session, nil
}

// Get returns a session by id
func (m *Manager) Get(id string) (*Session, error) {
	session, ok := m.store.Get(id)
	if !ok {
		return nil, domain.NewNotFoundError("session not found", map[string]interface{}{"session_id": id})
	}
	return session, nil
}

// List returns all sessions, newest first. A portfolioID of 0 lists every
// portfolio's sessions.
func (m *Manager) List(portfolioID int64) []Session {
	all := m.store.List()
	out := make([]Session, 0, len(all))
	for _, s := range all {
		if portfolioID != 0 && s.PortfolioID != portfolioID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// ActiveSession returns the active session for a portfolio, or nil if none
func (m *Manager) ActiveSession(portfolioID int64) *Session {
	for _, s := range m.store.List() {
		if s.PortfolioID == portfolioID && s.Status == StatusActive {
			copied := s
			return &copied
		}
	}
	return nil
}

// Stop closes an active session. Stopping an already stopped session is a
// no-op so shutdown paths can stop unconditionally.
func (m *Manager) Stop(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.store.Get(id)
	if !ok {
		return nil, domain.NewNotFoundError("session not found", map[string]interface{}{"session_id": id})
	}
	if session.Status == StatusStopped {
		return session, nil
	}

	now := time.Now().UTC()
	session.Status = StatusStopped
	session.StoppedAt = &now
	if err := m.store.Put(session); err != nil {
		return nil, err
	}

	m.log.Info().
		Str("session_id", session.ID).
		Int64("portfolio_id", session.PortfolioID).
		Dur("duration", now.Sub(session.StartedAt)).
		Msg("Trading session stopped")

	m.eventManager.Emit("sessions", session.PortfolioID, &session.ID, &events.SessionEventData{
		SessionID: session.ID,
		Status:    "stopped",
	})

	return session, nil
}

// StopAll stops every active session. Called on shutdown.
func (m *Manager) StopAll() {
	for _, s := range m.store.List() {
		if s.Status != StatusActive {
			continue
		}
		if _, err := m.Stop(s.ID); err != nil {
			m.log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to stop session")
		}
	}
}
