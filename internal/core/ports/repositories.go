package ports

import (
	"context"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

// IdentityRepository is the persistent tier of the identity cache.
// Get returns apperrors.ErrIdentityNotFound when nothing is stored.
type IdentityRepository interface {
	Get(ctx context.Context, rawID string) (*domain.AgentIdentity, error)
	Upsert(ctx context.Context, identity domain.AgentIdentity) error
}

// SnapshotRepository stores weekly snapshot rows keyed by
// (vendor, agent_id, week_start).
type SnapshotRepository interface {
	// UpsertWeek writes all rows in one call; existing keys are replaced.
	UpsertWeek(ctx context.Context, rows []domain.WeeklySnapshotRow) error
	ListWeek(ctx context.Context, vendor string, weekStart time.Time) ([]domain.WeeklySnapshotRow, error)
	// ListAgentHistory returns at most limit rows, newest week first.
	ListAgentHistory(ctx context.Context, vendor, agentID string, limit int) ([]domain.WeeklySnapshotRow, error)
}
