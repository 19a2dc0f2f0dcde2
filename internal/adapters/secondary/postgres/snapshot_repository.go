package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/core/utils"
)

// SnapshotRepository stores weekly agent snapshots in PostgreSQL.
type SnapshotRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tm: NewTransactionManager(pool)}
}

const snapshotColumns = `vendor, agent_id, week_start, week_end, agent_name, agent_email,
    total_conversations, fcr_rate, reopen_rate, escalation_rate,
    median_resolution_hours, median_response_hours,
    csat_score, csat_count, negative_csat_count, fcr_rank, coaching_priority`

// UpsertWeek writes every row in one batch inside a single transaction.
func (r *SnapshotRepository) UpsertWeek(ctx context.Context, rows []domain.WeeklySnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	const query = `
INSERT INTO weekly_snapshots (` + snapshotColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (vendor, agent_id, week_start) DO UPDATE SET
    week_end                = EXCLUDED.week_end,
    agent_name              = EXCLUDED.agent_name,
    agent_email             = EXCLUDED.agent_email,
    total_conversations     = EXCLUDED.total_conversations,
    fcr_rate                = EXCLUDED.fcr_rate,
    reopen_rate             = EXCLUDED.reopen_rate,
    escalation_rate         = EXCLUDED.escalation_rate,
    median_resolution_hours = EXCLUDED.median_resolution_hours,
    median_response_hours   = EXCLUDED.median_response_hours,
    csat_score              = EXCLUDED.csat_score,
    csat_count              = EXCLUDED.csat_count,
    negative_csat_count     = EXCLUDED.negative_csat_count,
    fcr_rank                = EXCLUDED.fcr_rank,
    coaching_priority       = EXCLUDED.coaching_priority,
    updated_at              = NOW()
`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query,
			row.Vendor,
			row.AgentID,
			utils.ToDate(row.WeekStart),
			utils.ToDate(row.WeekEnd),
			utils.ToText(row.AgentName),
			utils.ToText(row.AgentEmail),
			row.TotalConversations,
			row.FCRRate,
			row.ReopenRate,
			row.EscalationRate,
			row.MedianResolutionHours,
			row.MedianResponseHours,
			row.CSATScore,
			row.CSATCount,
			row.NegativeCSATCount,
			row.FCRRank,
			string(row.CoachingPriority),
		)
	}

	return r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := range rows {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("upsert snapshot %s/%s: %w", rows[i].Vendor, rows[i].AgentID, err)
			}
		}
		return results.Close()
	})
}

// ListWeek returns every agent row stored for the vendor and week.
func (r *SnapshotRepository) ListWeek(ctx context.Context, vendor string, weekStart time.Time) ([]domain.WeeklySnapshotRow, error) {
	const query = `
SELECT ` + snapshotColumns + `
FROM weekly_snapshots
WHERE vendor = $1 AND week_start = $2
ORDER BY fcr_rank, agent_id
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, vendor, utils.ToDate(weekStart))
	if err != nil {
		return nil, fmt.Errorf("list week snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ListAgentHistory returns at most limit rows for one agent, newest first.
func (r *SnapshotRepository) ListAgentHistory(ctx context.Context, vendor, agentID string, limit int) ([]domain.WeeklySnapshotRow, error) {
	const query = `
SELECT ` + snapshotColumns + `
FROM weekly_snapshots
WHERE vendor = $1 AND agent_id = $2
ORDER BY week_start DESC
LIMIT $3
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, vendor, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list agent history: %w", err)
	}
	return collectSnapshots(rows)
}

func collectSnapshots(rows pgx.Rows) ([]domain.WeeklySnapshotRow, error) {
	defer rows.Close()

	snapshots := make([]domain.WeeklySnapshotRow, 0)
	for rows.Next() {
		var (
			row        domain.WeeklySnapshotRow
			weekStart  pgtype.Date
			weekEnd    pgtype.Date
			agentName  pgtype.Text
			agentEmail pgtype.Text
			priority   string
		)
		if err := rows.Scan(
			&row.Vendor,
			&row.AgentID,
			&weekStart,
			&weekEnd,
			&agentName,
			&agentEmail,
			&row.TotalConversations,
			&row.FCRRate,
			&row.ReopenRate,
			&row.EscalationRate,
			&row.MedianResolutionHours,
			&row.MedianResponseHours,
			&row.CSATScore,
			&row.CSATCount,
			&row.NegativeCSATCount,
			&row.FCRRank,
			&priority,
		); err != nil {
			return nil, err
		}
		row.WeekStart = utils.FromDate(weekStart)
		row.WeekEnd = utils.FromDate(weekEnd)
		row.AgentName = utils.FromText(agentName)
		row.AgentEmail = utils.FromText(agentEmail)
		row.CoachingPriority = domain.CoachingPriority(priority)
		snapshots = append(snapshots, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}
