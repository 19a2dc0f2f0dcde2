package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/mocks"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type analysisFixture struct {
	resolver    *mocks.MockIdentityResolver
	taxonomy    *mocks.MockTaxonomyClassifier
	snapshots   *mocks.MockSnapshotService
	broadcaster *mocks.MockEventBroadcaster
	svc         *services.AnalysisService
}

func newAnalysisFixture() *analysisFixture {
	f := &analysisFixture{
		resolver:    mocks.NewMockIdentityResolver(),
		taxonomy:    mocks.NewMockTaxonomyClassifier(),
		snapshots:   mocks.NewMockSnapshotService(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	detector := services.NewCompositeEscalationDetector(services.NewTextEscalationDetector(services.DefaultEscalationMarkers))
	f.svc = services.NewAnalysisService(services.AnalysisDeps{
		Resolver:    f.resolver,
		Taxonomy:    f.taxonomy,
		Aggregator:  services.NewMetricsAggregator(detector, services.MetricsAggregatorConfig{}),
		Classifier:  services.NewPerformanceClassifier(detector),
		Builder:     services.NewVendorReportBuilder(),
		Snapshots:   f.snapshots,
		Broadcaster: f.broadcaster,
	}, testLogger())
	return f
}

func analysisConversations() []domain.Conversation {
	a1 := closedConv("1", "a", 1)
	a1.AssigneeEmail = "ana@boldr.io"
	a1.Category = "billing"
	a2 := reopened(closedConv("2", "a", 2), 1)
	a2.Category = "billing"
	b1 := closedConv("3", "b", 1)
	b1.FullText = "my invoice is wrong"
	other := closedConv("4", "x", 1)
	unassigned := closedConv("5", "", 1)
	return []domain.Conversation{a1, a2, b1, other, unassigned}
}

func TestAnalysisService_AnalyzeVendor(t *testing.T) {
	ctx := context.Background()
	weekEnd := baseTime.AddDate(0, 0, 7)

	identities := map[string]domain.AgentIdentity{
		"a": {RawID: "a", Vendor: "boldr", Name: "Ana"},
		"b": {RawID: "b", Vendor: "boldr", Name: "Bo"},
		"x": {RawID: "x", Vendor: "horatio"},
	}

	t.Run("builds report and persists", func(t *testing.T) {
		f := newAnalysisFixture()

		f.taxonomy.On("Classify", "my invoice is wrong", mock.Anything, mock.Anything).
			Return([]domain.TaxonomyMatch{
				{Category: "account", Confidence: 0.2},
				{Category: "billing", Subcategory: "invoice", Confidence: 0.9},
			})
		f.taxonomy.On("Classify", "", mock.Anything, mock.Anything).Return(nil)
		f.resolver.On("ResolveBatch", mock.Anything, []ports.IdentityRequest{
			{RawID: "a", FallbackEmail: "ana@boldr.io"},
			{RawID: "b"},
			{RawID: "x"},
		}).Return(identities)
		f.snapshots.On("UpsertWeek", mock.Anything, "boldr", baseTime, weekEnd, mock.Anything).Return(nil)
		f.snapshots.On("WeekOverWeek", mock.Anything, "boldr", baseTime).Return(map[string]domain.WeekOverWeekDelta{
			"a": {AgentID: "a", IsNew: true},
		}, nil)
		f.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventReportCompleted && e.Vendor == "boldr"
		})).Return(nil)

		report, err := f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{
			Vendor:        " Boldr ",
			WeekStart:     baseTime,
			WeekEnd:       weekEnd,
			Conversations: analysisConversations(),
			Persist:       true,
		})

		require.NoError(t, err)
		assert.Equal(t, "boldr", report.Vendor)
		assert.Len(t, report.Agents, 2)
		assert.Equal(t, 1, report.UnassignedConversations)
		assert.Equal(t, 1, report.ExcludedAgents)
		assert.Equal(t, 3, report.TeamMetrics.TotalConversations)
		assert.True(t, report.SnapshotStored)
		assert.Contains(t, report.WeekOverWeek, "a")

		b, ok := report.Agent("b")
		require.True(t, ok)
		assert.Equal(t, 1, b.FCRRank)

		f.resolver.AssertExpectations(t)
		f.snapshots.AssertExpectations(t)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("snapshot failure is reported not returned", func(t *testing.T) {
		f := newAnalysisFixture()

		f.taxonomy.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.resolver.On("ResolveBatch", mock.Anything, mock.Anything).Return(identities)
		f.snapshots.On("UpsertWeek", mock.Anything, "boldr", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("database unavailable"))
		f.broadcaster.On("Broadcast", mock.Anything).Return(nil)

		report, err := f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{
			Vendor:        "boldr",
			WeekStart:     baseTime,
			Conversations: analysisConversations(),
			Persist:       true,
		})

		require.NoError(t, err)
		assert.False(t, report.SnapshotStored)
		assert.Nil(t, report.WeekOverWeek)
		assert.Equal(t, baseTime.Add(domain.WeekLength), report.PeriodEnd)
		f.snapshots.AssertNotCalled(t, "WeekOverWeek", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("without persist the store is untouched", func(t *testing.T) {
		f := newAnalysisFixture()

		f.taxonomy.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.resolver.On("ResolveBatch", mock.Anything, mock.Anything).Return(identities)
		f.broadcaster.On("Broadcast", mock.Anything).Return(nil)

		report, err := f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{
			Vendor:        "horatio",
			WeekStart:     baseTime,
			Conversations: analysisConversations(),
		})

		require.NoError(t, err)
		assert.Len(t, report.Agents, 1)
		assert.Equal(t, 2, report.ExcludedAgents)
		assert.False(t, report.SnapshotStored)
		f.snapshots.AssertNotCalled(t, "UpsertWeek", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vendor with no agents", func(t *testing.T) {
		f := newAnalysisFixture()

		f.taxonomy.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.resolver.On("ResolveBatch", mock.Anything, mock.Anything).Return(identities)

		report, err := f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{
			Vendor:        "acme",
			WeekStart:     baseTime,
			Conversations: analysisConversations(),
			Persist:       true,
		})

		assert.Nil(t, report)
		assert.ErrorIs(t, err, apperrors.ErrNoAgentsFound)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		f := newAnalysisFixture()

		_, err := f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{WeekStart: baseTime})
		assert.ErrorIs(t, err, apperrors.ErrVendorRequired)

		_, err = f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{Vendor: "boldr"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidWeekStart)

		_, err = f.svc.AnalyzeVendor(ctx, ports.AnalyzeVendorParams{Vendor: "boldr", WeekStart: weekEnd, WeekEnd: baseTime})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPeriod)
	})
}
