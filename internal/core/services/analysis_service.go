package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/logging"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

// AnalysisDeps groups the collaborators of an analysis run. Taxonomy,
// Snapshots and Broadcaster are optional.
type AnalysisDeps struct {
	Resolver    ports.IdentityResolver
	Taxonomy    ports.TaxonomyClassifier
	Aggregator  *MetricsAggregator
	Classifier  *PerformanceClassifier
	Builder     *VendorReportBuilder
	Snapshots   ports.SnapshotService
	Broadcaster ports.EventBroadcaster
}

// AnalysisService runs the weekly vendor analysis pipeline.
type AnalysisService struct {
	deps   AnalysisDeps
	logger *slog.Logger
}

var _ ports.AnalysisService = (*AnalysisService)(nil)

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(deps AnalysisDeps, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		deps:   deps,
		logger: logger.With("component", "analysis_service"),
	}
}

// AnalyzeVendor resolves every assignee, keeps the agents that belong to
// the vendor and builds the team report. When params.Persist is set the
// agents are snapshotted and the report carries week-over-week deltas.
func (s *AnalysisService) AnalyzeVendor(ctx context.Context, params ports.AnalyzeVendorParams) (report *domain.VendorPerformanceReport, err error) {
	vendor := strings.ToLower(strings.TrimSpace(params.Vendor))
	if vendor == "" {
		return nil, apperrors.ErrVendorRequired
	}
	if params.WeekStart.IsZero() {
		return nil, apperrors.ErrInvalidWeekStart
	}
	weekStart := params.WeekStart.UTC()
	weekEnd := params.WeekEnd.UTC()
	if params.WeekEnd.IsZero() {
		weekEnd = weekStart.Add(domain.WeekLength)
	}
	if weekEnd.Before(weekStart) {
		return nil, apperrors.ErrInvalidPeriod
	}

	ctx = logging.WithVendor(ctx, vendor)
	started := time.Now()
	defer func() {
		status := "success"
		switch {
		case errors.Is(err, apperrors.ErrNoAgentsFound):
			status = "no_agents"
		case err != nil:
			status = "error"
		}
		metrics.AnalysisRuns.WithLabelValues(vendor, status).Inc()
		metrics.AnalysisDuration.WithLabelValues(vendor).Observe(time.Since(started).Seconds())
	}()

	conversations := s.label(params.Conversations)
	groups := groupByAssignee(conversations)

	requests := make([]ports.IdentityRequest, 0, len(groups.order))
	for _, id := range groups.order {
		requests = append(requests, ports.IdentityRequest{RawID: id, FallbackEmail: groups.emails[id]})
	}
	identities := s.deps.Resolver.ResolveBatch(ctx, requests)

	var (
		agents   []*domain.AgentPerformanceMetrics
		excluded int
	)
	for _, id := range groups.order {
		identity, ok := identities[id]
		if !ok || !strings.EqualFold(identity.Vendor, vendor) {
			excluded++
			continue
		}
		agents = append(agents, s.deps.Aggregator.ComputeMetrics(identity, groups.conversations[id]))
	}

	s.deps.Classifier.Classify(agents, groups.conversations)

	report, err = s.deps.Builder.Build(vendor, weekStart, weekEnd, agents)
	if err != nil {
		s.logger.InfoContext(ctx, "no agents matched vendor",
			"assignees", len(groups.order),
			"excluded", excluded,
		)
		return nil, err
	}
	report.UnassignedConversations = groups.unassigned
	report.ExcludedAgents = excluded
	metrics.ConversationsAnalyzed.WithLabelValues(vendor).Add(float64(report.TeamMetrics.TotalConversations))

	if params.Persist && s.deps.Snapshots != nil {
		s.persist(ctx, report)
	}

	runID := uuid.NewString()
	s.logger.InfoContext(ctx, "vendor analysis completed",
		"run_id", runID,
		"agents", report.TeamMetrics.TotalAgents,
		"conversations", report.TeamMetrics.TotalConversations,
		"excluded", excluded,
		"unassigned", groups.unassigned,
		"snapshot_stored", report.SnapshotStored,
	)
	s.announce(ctx, runID, report)

	return report, nil
}

// persist stores the snapshot and attaches the week-over-week view. Storage
// failures are reported on the report rather than failing the run.
func (s *AnalysisService) persist(ctx context.Context, report *domain.VendorPerformanceReport) {
	if err := s.deps.Snapshots.UpsertWeek(ctx, report.Vendor, report.PeriodStart, report.PeriodEnd, report.Agents); err != nil {
		s.logger.ErrorContext(ctx, "failed to store weekly snapshot", "error", err)
		report.SnapshotStored = false
		return
	}
	report.SnapshotStored = true

	deltas, err := s.deps.Snapshots.WeekOverWeek(ctx, report.Vendor, report.PeriodStart)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load week-over-week changes", "error", err)
		return
	}
	report.WeekOverWeek = deltas
}

func (s *AnalysisService) announce(ctx context.Context, runID string, report *domain.VendorPerformanceReport) {
	if s.deps.Broadcaster == nil {
		return
	}
	event := domain.Event{
		Type:   domain.EventReportCompleted,
		Vendor: report.Vendor,
		Payload: domain.ReportCompletedPayload{
			RunID:                 runID,
			WeekStart:             domain.NormalizeWeekDate(report.PeriodStart).Format(time.DateOnly),
			TotalAgents:           report.TeamMetrics.TotalAgents,
			TotalConversations:    report.TeamMetrics.TotalConversations,
			TeamFCRRate:           report.TeamMetrics.FCRRate,
			AgentsNeedingCoaching: report.AgentsNeedingCoaching,
		},
	}
	if err := s.deps.Broadcaster.Broadcast(event); err != nil {
		s.logger.WarnContext(ctx, "failed to broadcast report event", "error", err)
	}
}

// label fills in the taxonomy for conversations that arrived without one,
// taking the most confident match.
func (s *AnalysisService) label(conversations []domain.Conversation) []domain.Conversation {
	if s.deps.Taxonomy == nil {
		return conversations
	}
	labelled := make([]domain.Conversation, len(conversations))
	for i, c := range conversations {
		labelled[i] = c
		if c.Category != "" {
			continue
		}
		var best *domain.TaxonomyMatch
		for _, match := range s.deps.Taxonomy.Classify(c.FullText, c.Tags, c.Topics) {
			match := match
			if best == nil || match.Confidence > best.Confidence {
				best = &match
			}
		}
		if best != nil {
			labelled[i] = c.WithTaxonomy(best.Category, best.Subcategory)
		}
	}
	return labelled
}

type assigneeGroups struct {
	order         []string
	emails        map[string]string
	conversations map[string][]domain.Conversation
	unassigned    int
}

// groupByAssignee buckets conversations per agent, keeping first-seen
// order and the first non-empty assignee email as identity fallback.
func groupByAssignee(conversations []domain.Conversation) assigneeGroups {
	groups := assigneeGroups{
		emails:        make(map[string]string),
		conversations: make(map[string][]domain.Conversation),
	}
	for _, c := range conversations {
		id := strings.TrimSpace(c.AssigneeID)
		if id == "" {
			groups.unassigned++
			continue
		}
		if _, seen := groups.conversations[id]; !seen {
			groups.order = append(groups.order, id)
		}
		groups.conversations[id] = append(groups.conversations[id], c)
		if groups.emails[id] == "" {
			groups.emails[id] = strings.TrimSpace(c.AssigneeEmail)
		}
	}
	return groups
}
