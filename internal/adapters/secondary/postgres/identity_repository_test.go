package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepository_UpsertGet(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	repo := NewIdentityRepository(testPool)

	resolvedAt := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	identity := domain.AgentIdentity{
		RawID:      "identity-1",
		Name:       "Ana",
		WorkEmail:  "ana@boldr.io",
		Vendor:     "boldr",
		Active:     true,
		ResolvedAt: resolvedAt,
	}

	// 1. Insert
	require.NoError(t, repo.Upsert(ctx, identity))

	found, err := repo.Get(ctx, "identity-1")
	require.NoError(t, err)
	assert.Equal(t, identity, *found)

	// 2. Supersede with a newer resolution
	identity.Vendor = domain.VendorUnknown
	identity.Fallback = true
	identity.Name = ""
	identity.ResolvedAt = resolvedAt.Add(8 * 24 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, identity))

	found, err = repo.Get(ctx, "identity-1")
	require.NoError(t, err)
	assert.Equal(t, domain.VendorUnknown, found.Vendor)
	assert.True(t, found.Fallback)
	assert.Empty(t, found.Name)
	assert.True(t, identity.ResolvedAt.Equal(found.ResolvedAt))
}

func TestIdentityRepository_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(testPool)

	_, err := repo.Get(ctx, "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrIdentityNotFound)
}
