package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

const identityKeyPrefix = "vendor-performance:identity:"

// IdentityRepository is a Redis-backed persistent identity tier. Entries
// are stored as JSON; freshness is judged by the resolver, not by key expiry.
type IdentityRepository struct {
	client    *redis.Client
	retention time.Duration
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

// NewIdentityRepository creates a new repository. A zero retention keeps
// keys until they are superseded.
func NewIdentityRepository(client *redis.Client, retention time.Duration) *IdentityRepository {
	return &IdentityRepository{client: client, retention: retention}
}

// Get returns the stored identity for rawID.
func (r *IdentityRepository) Get(ctx context.Context, rawID string) (*domain.AgentIdentity, error) {
	data, err := r.client.Get(ctx, identityKey(rawID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %s from redis: %w", rawID, err)
	}

	var identity domain.AgentIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", rawID, err)
	}
	return &identity, nil
}

// Upsert stores identity, replacing any earlier value.
func (r *IdentityRepository) Upsert(ctx context.Context, identity domain.AgentIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity %s: %w", identity.RawID, err)
	}
	if err := r.client.Set(ctx, identityKey(identity.RawID), data, r.retention).Err(); err != nil {
		return fmt.Errorf("save identity %s to redis: %w", identity.RawID, err)
	}
	return nil
}

func identityKey(rawID string) string {
	return identityKeyPrefix + rawID
}
