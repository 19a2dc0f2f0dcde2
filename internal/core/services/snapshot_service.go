package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

// SnapshotService persists weekly agent metrics and compares weeks.
type SnapshotService struct {
	repo        ports.SnapshotRepository
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.SnapshotService = (*SnapshotService)(nil)

// NewSnapshotService creates a new snapshot service. broadcaster may be nil.
func NewSnapshotService(repo ports.SnapshotRepository, broadcaster ports.EventBroadcaster, logger *slog.Logger) *SnapshotService {
	return &SnapshotService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger.With("component", "snapshot_service"),
	}
}

// UpsertWeek writes one row per agent for the week. Re-running the same
// week replaces the earlier rows.
func (s *SnapshotService) UpsertWeek(ctx context.Context, vendor string, weekStart, weekEnd time.Time, agents []*domain.AgentPerformanceMetrics) error {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return apperrors.ErrVendorRequired
	}
	if weekStart.IsZero() {
		return apperrors.ErrInvalidWeekStart
	}
	if weekEnd.Before(weekStart) {
		return apperrors.ErrInvalidPeriod
	}
	if len(agents) == 0 {
		return nil
	}

	rows := make([]domain.WeeklySnapshotRow, 0, len(agents))
	for _, m := range agents {
		rows = append(rows, domain.NewWeeklySnapshotRow(vendor, weekStart, weekEnd, m))
	}

	if err := s.repo.UpsertWeek(ctx, rows); err != nil {
		metrics.SnapshotUpserts.WithLabelValues("error").Inc()
		return fmt.Errorf("upsert week snapshot: %w", err)
	}
	metrics.SnapshotUpserts.WithLabelValues("success").Inc()

	weekKey := domain.NormalizeWeekDate(weekStart).Format(time.DateOnly)
	s.logger.InfoContext(ctx, "weekly snapshot stored",
		"vendor", vendor,
		"week_start", weekKey,
		"rows", len(rows),
	)

	if s.broadcaster != nil {
		event := domain.Event{
			Type:    domain.EventSnapshotStored,
			Vendor:  vendor,
			Payload: domain.SnapshotStoredPayload{WeekStart: weekKey, Rows: len(rows)},
		}
		if err := s.broadcaster.Broadcast(event); err != nil {
			s.logger.WarnContext(ctx, "failed to broadcast snapshot event", "error", err)
		}
	}
	return nil
}

// WeekOverWeek compares each agent stored for currentWeekStart with the
// same agent seven days earlier.
func (s *SnapshotService) WeekOverWeek(ctx context.Context, vendor string, currentWeekStart time.Time) (map[string]domain.WeekOverWeekDelta, error) {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return nil, apperrors.ErrVendorRequired
	}
	if currentWeekStart.IsZero() {
		return nil, apperrors.ErrInvalidWeekStart
	}

	current, err := s.repo.ListWeek(ctx, vendor, domain.NormalizeWeekDate(currentWeekStart))
	if err != nil {
		return nil, fmt.Errorf("list current week: %w", err)
	}
	if len(current) == 0 {
		return nil, apperrors.ErrSnapshotNotFound
	}

	previous, err := s.repo.ListWeek(ctx, vendor, domain.PriorWeekStart(currentWeekStart))
	if err != nil {
		return nil, fmt.Errorf("list previous week: %w", err)
	}
	byAgent := make(map[string]*domain.WeeklySnapshotRow, len(previous))
	for i := range previous {
		byAgent[previous[i].AgentID] = &previous[i]
	}

	deltas := make(map[string]domain.WeekOverWeekDelta, len(current))
	for _, row := range current {
		deltas[row.AgentID] = domain.CompareWeeks(row, byAgent[row.AgentID])
	}
	return deltas, nil
}

// Trend returns up to weeksBack snapshots for an agent, newest first.
func (s *SnapshotService) Trend(ctx context.Context, vendor, agentID string, weeksBack int) ([]domain.WeeklySnapshotRow, error) {
	vendor = strings.TrimSpace(vendor)
	agentID = strings.TrimSpace(agentID)
	if vendor == "" {
		return nil, apperrors.ErrVendorRequired
	}
	if agentID == "" {
		return nil, apperrors.ErrAgentIDRequired
	}
	if weeksBack <= 0 {
		return nil, apperrors.ErrInvalidWeeksBack
	}

	rows, err := s.repo.ListAgentHistory(ctx, vendor, agentID, weeksBack)
	if err != nil {
		return nil, fmt.Errorf("list agent history: %w", err)
	}
	return rows, nil
}
