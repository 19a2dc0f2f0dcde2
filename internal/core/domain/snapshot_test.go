package domain_test

import (
	"testing"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorWeekStart(t *testing.T) {
	weekStart := time.Date(2024, 5, 6, 15, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), domain.PriorWeekStart(weekStart))
}

func TestCompareWeeks(t *testing.T) {
	current := domain.WeeklySnapshotRow{
		AgentID: "agent-1",
		SnapshotMetrics: domain.SnapshotMetrics{
			TotalConversations: 40,
			FCRRate:            0.80,
			CSATScore:          4.5,
		},
	}

	t.Run("with previous week", func(t *testing.T) {
		previous := domain.WeeklySnapshotRow{
			AgentID: "agent-1",
			SnapshotMetrics: domain.SnapshotMetrics{
				TotalConversations: 35,
				FCRRate:            0.75,
				CSATScore:          4.0,
			},
		}

		delta := domain.CompareWeeks(current, &previous)

		assert.False(t, delta.IsNew)
		require.NotNil(t, delta.Changes)
		require.NotNil(t, delta.Previous)
		assert.InDelta(t, 0.05, delta.Changes.FCRChange, 1e-9)
		assert.InDelta(t, 0.5, delta.Changes.CSATChange, 1e-9)
		assert.Equal(t, 5, delta.Changes.VolumeChange)
		assert.Equal(t, 0.75, delta.Previous.FCRRate)
		assert.Equal(t, 0.80, delta.Current.FCRRate)
	})

	t.Run("new agent", func(t *testing.T) {
		delta := domain.CompareWeeks(current, nil)

		assert.True(t, delta.IsNew)
		assert.Nil(t, delta.Changes)
		assert.Nil(t, delta.Previous)
	})
}

func TestNewWeeklySnapshotRow(t *testing.T) {
	m := &domain.AgentPerformanceMetrics{
		Identity:           domain.AgentIdentity{RawID: "42", Name: "Sam", WorkEmail: "sam@hirehoratio.co"},
		TotalConversations: 12,
		FCRRate:            0.9,
		CSAT:               domain.CSATAggregate{Mean: 4.2, Count: 6, NegativeCount: 1},
		FCRRank:            2,
		CoachingPriority:   domain.CoachingLow,
	}
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	row := domain.NewWeeklySnapshotRow("horatio", start, start.AddDate(0, 0, 6), m)

	assert.Equal(t, "horatio", row.Vendor)
	assert.Equal(t, "42", row.AgentID)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), row.WeekStart)
	assert.Equal(t, "Sam", row.AgentName)
	assert.Equal(t, 4.2, row.CSATScore)
	assert.Equal(t, 6, row.CSATCount)
	assert.Equal(t, domain.CoachingLow, row.CoachingPriority)
}
