package scheduler

import (
	"errors"
	"testing"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	calls int
}

func (m *mockSweeper) SweepAllPortfolios() { m.calls++ }

type mockLister struct {
	portfolios []domain.Portfolio
	err        error
}

func (m *mockLister) GetAll() ([]domain.Portfolio, error) { return m.portfolios, m.err }

type mockSnapshotter struct {
	snapped []int64
	failFor int64
}

func (m *mockSnapshotter) SnapshotDiagnostics(portfolioID int64) error {
	if portfolioID == m.failFor {
		return errors.New("snapshot failed")
	}
	m.snapped = append(m.snapped, portfolioID)
	return nil
}

func TestStopSweepJob(t *testing.T) {
	sweeper := &mockSweeper{}
	job := NewStopSweepJob(sweeper)

	assert.Equal(t, "stop_sweep", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, sweeper.calls)
}

func TestRiskSnapshotJob_SnapshotsEveryPortfolio(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	lister := &mockLister{portfolios: []domain.Portfolio{{ID: 1}, {ID: 2}, {ID: 3}}}
	snapshotter := &mockSnapshotter{}

	job := NewRiskSnapshotJob(lister, snapshotter, log)
	require.NoError(t, job.Run())
	assert.Equal(t, []int64{1, 2, 3}, snapshotter.snapped)
}

func TestRiskSnapshotJob_ContinuesPastFailures(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	lister := &mockLister{portfolios: []domain.Portfolio{{ID: 1}, {ID: 2}, {ID: 3}}}
	snapshotter := &mockSnapshotter{failFor: 2}

	job := NewRiskSnapshotJob(lister, snapshotter, log)
	require.NoError(t, job.Run())
	assert.Equal(t, []int64{1, 3}, snapshotter.snapped)
}

func TestRiskSnapshotJob_ListFailure(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	lister := &mockLister{err: errors.New("db closed")}

	job := NewRiskSnapshotJob(lister, &mockSnapshotter{}, log)
	assert.Error(t, job.Run())
}
