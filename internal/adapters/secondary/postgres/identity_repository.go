package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/core/utils"
)

// IdentityRepository is the persistent identity tier backed by PostgreSQL.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

// NewIdentityRepository creates a new identity repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Get returns the stored identity for rawID.
func (r *IdentityRepository) Get(ctx context.Context, rawID string) (*domain.AgentIdentity, error) {
	const query = `
SELECT raw_id, name, work_email, public_email, vendor, active, fallback, resolved_at
FROM agent_identities
WHERE raw_id = $1
`

	var (
		identity    domain.AgentIdentity
		name        pgtype.Text
		workEmail   pgtype.Text
		publicEmail pgtype.Text
		resolvedAt  time.Time
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, rawID).Scan(
		&identity.RawID,
		&name,
		&workEmail,
		&publicEmail,
		&identity.Vendor,
		&identity.Active,
		&identity.Fallback,
		&resolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("get identity %s: %w", rawID, err)
	}

	identity.Name = utils.FromText(name)
	identity.WorkEmail = utils.FromText(workEmail)
	identity.PublicEmail = utils.FromText(publicEmail)
	identity.ResolvedAt = resolvedAt.UTC()
	return &identity, nil
}

// Upsert stores identity, superseding any earlier resolution.
func (r *IdentityRepository) Upsert(ctx context.Context, identity domain.AgentIdentity) error {
	const query = `
INSERT INTO agent_identities (raw_id, name, work_email, public_email, vendor, active, fallback, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (raw_id) DO UPDATE SET
    name         = EXCLUDED.name,
    work_email   = EXCLUDED.work_email,
    public_email = EXCLUDED.public_email,
    vendor       = EXCLUDED.vendor,
    active       = EXCLUDED.active,
    fallback     = EXCLUDED.fallback,
    resolved_at  = EXCLUDED.resolved_at,
    updated_at   = NOW()
`

	_, err := GetDBTX(ctx, r.pool).Exec(ctx, query,
		identity.RawID,
		utils.ToText(identity.Name),
		utils.ToText(identity.WorkEmail),
		utils.ToText(identity.PublicEmail),
		identity.Vendor,
		identity.Active,
		identity.Fallback,
		utils.ToTimestamptz(identity.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", identity.RawID, err)
	}
	return nil
}
