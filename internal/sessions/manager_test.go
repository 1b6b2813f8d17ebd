package sessions

import (
	"testing"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewManager(NewMemoryStore(), events.NewManager(events.NewBus(log), log), log)
}

func TestStartAndGet(t *testing.T) {
	m := newTestManager()

	session, err := m.Start(1, "momentum")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, StatusActive, session.Status)
	assert.Nil(t, session.StoppedAt)

	fetched, err := m.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, fetched.ID)
	assert.Equal(t, "momentum", fetched.Strategy)
}

func TestStart_RejectsSecondActiveSession(t *testing.T) {
	m := newTestManager()

	_, err := m.Start(1, "momentum")
	require.NoError(t, err)

	_, err = m.Start(1, "mean_reversion")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	// A different portfolio is fine
	_, err = m.Start(2, "momentum")
	require.NoError(t, err)
}

func TestStart_InvalidPortfolio(t *testing.T) {
	m := newTestManager()

	_, err := m.Start(0, "momentum")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestStop_IsIdempotent(t *testing.T) {
	m := newTestManager()

	session, err := m.Start(1, "momentum")
	require.NoError(t, err)

	stopped, err := m.Stop(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, stopped.Status)
	require.NotNil(t, stopped.StoppedAt)

	again, err := m.Stop(session.ID)
	require.NoError(t, err)
	assert.Equal(t, stopped.StoppedAt, again.StoppedAt)

	// Stopping frees the portfolio for a new session
	_, err = m.Start(1, "momentum")
	require.NoError(t, err)
}

func TestStop_UnknownSession(t *testing.T) {
	m := newTestManager()

	_, err := m.Stop("nope")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestListAndActiveSession(t *testing.T) {
	m := newTestManager()

	s1, err := m.Start(1, "momentum")
	require.NoError(t, err)
	_, err = m.Start(2, "momentum")
	require.NoError(t, err)

	assert.Len(t, m.List(0), 2)
	assert.Len(t, m.List(1), 1)
	assert.Empty(t, m.List(3))

	active := m.ActiveSession(1)
	require.NotNil(t, active)
	assert.Equal(t, s1.ID, active.ID)

	m.StopAll()
	assert.Nil(t, m.ActiveSession(1))
	assert.Nil(t, m.ActiveSession(2))
}
