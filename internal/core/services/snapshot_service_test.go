package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/mocks"
	"github.com/lorrc/vendor-performance/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func snapshotRow(agentID string, weekStart time.Time, fcr float64) domain.WeeklySnapshotRow {
	return domain.WeeklySnapshotRow{
		Vendor:    "boldr",
		AgentID:   agentID,
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 7),
		SnapshotMetrics: domain.SnapshotMetrics{
			TotalConversations: 10,
			FCRRate:            fcr,
		},
	}
}

func TestSnapshotService_UpsertWeek(t *testing.T) {
	ctx := context.Background()
	weekStart := time.Date(2025, 3, 3, 15, 30, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	t.Run("writes one row per agent and broadcasts", func(t *testing.T) {
		repo := mocks.NewMockSnapshotRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewSnapshotService(repo, broadcaster, testLogger())

		repo.On("UpsertWeek", ctx, mock.MatchedBy(func(rows []domain.WeeklySnapshotRow) bool {
			return len(rows) == 2 &&
				rows[0].AgentID == "a" &&
				rows[0].WeekStart.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)) &&
				rows[0].FCRRate == 0.8
		})).Return(nil)
		broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventSnapshotStored && e.Vendor == "boldr"
		})).Return(nil)

		err := svc.UpsertWeek(ctx, "boldr", weekStart, weekEnd, []*domain.AgentPerformanceMetrics{
			agent("a", 0.8, 0), agent("b", 0.9, 0),
		})

		require.NoError(t, err)
		repo.AssertExpectations(t)
		broadcaster.AssertExpectations(t)
	})

	t.Run("repository failure is returned", func(t *testing.T) {
		repo := mocks.NewMockSnapshotRepository()
		svc := services.NewSnapshotService(repo, nil, testLogger())
		dbErr := errors.New("connection reset")

		repo.On("UpsertWeek", ctx, mock.Anything).Return(dbErr)

		err := svc.UpsertWeek(ctx, "boldr", weekStart, weekEnd, []*domain.AgentPerformanceMetrics{agent("a", 0.8, 0)})

		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("validation", func(t *testing.T) {
		repo := mocks.NewMockSnapshotRepository()
		svc := services.NewSnapshotService(repo, nil, testLogger())
		agents := []*domain.AgentPerformanceMetrics{agent("a", 0.8, 0)}

		assert.ErrorIs(t, svc.UpsertWeek(ctx, " ", weekStart, weekEnd, agents), apperrors.ErrVendorRequired)
		assert.ErrorIs(t, svc.UpsertWeek(ctx, "boldr", time.Time{}, weekEnd, agents), apperrors.ErrInvalidWeekStart)
		assert.ErrorIs(t, svc.UpsertWeek(ctx, "boldr", weekEnd, weekStart, agents), apperrors.ErrInvalidPeriod)
		assert.NoError(t, svc.UpsertWeek(ctx, "boldr", weekStart, weekEnd, nil))
		repo.AssertNotCalled(t, "UpsertWeek", mock.Anything, mock.Anything)
	})
}

func TestSnapshotService_WeekOverWeek(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	previous := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("deltas and new agents", func(t *testing.T) {
		repo := mocks.NewMockSnapshotRepository()
		svc := services.NewSnapshotService(repo, nil, testLogger())

		repo.On("ListWeek", ctx, "boldr", current).Return([]domain.WeeklySnapshotRow{
			snapshotRow("a", current, 0.80),
			snapshotRow("new", current, 0.70),
		}, nil)
		repo.On("ListWeek", ctx, "boldr", previous).Return([]domain.WeeklySnapshotRow{
			snapshotRow("a", previous, 0.75),
			snapshotRow("gone", previous, 0.90),
		}, nil)

		deltas, err := svc.WeekOverWeek(ctx, "boldr", current)

		require.NoError(t, err)
		require.Len(t, deltas, 2)

		a := deltas["a"]
		assert.False(t, a.IsNew)
		require.NotNil(t, a.Changes)
		assert.InDelta(t, 0.05, a.Changes.FCRChange, 1e-9)
		assert.Equal(t, 0.80, a.Current.FCRRate)
		assert.Equal(t, 0.75, a.Previous.FCRRate)

		fresh := deltas["new"]
		assert.True(t, fresh.IsNew)
		assert.Nil(t, fresh.Changes)
		assert.Nil(t, fresh.Previous)
	})

	t.Run("missing current week", func(t *testing.T) {
		repo := mocks.NewMockSnapshotRepository()
		svc := services.NewSnapshotService(repo, nil, testLogger())

		repo.On("ListWeek", ctx, "boldr", current).Return([]domain.WeeklySnapshotRow{}, nil)

		_, err := svc.WeekOverWeek(ctx, "boldr", current)

		assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	})
}

func TestSnapshotService_Trend(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockSnapshotRepository()
	svc := services.NewSnapshotService(repo, nil, testLogger())

	rows := []domain.WeeklySnapshotRow{snapshotRow("a", baseTime, 0.8)}
	repo.On("ListAgentHistory", ctx, "boldr", "a", 4).Return(rows, nil)

	got, err := svc.Trend(ctx, "boldr", "a", 4)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = svc.Trend(ctx, "boldr", "a", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidWeeksBack)
	_, err = svc.Trend(ctx, "boldr", "", 4)
	assert.ErrorIs(t, err, apperrors.ErrAgentIDRequired)
	_, err = svc.Trend(ctx, "", "a", 4)
	assert.ErrorIs(t, err, apperrors.ErrVendorRequired)
}
