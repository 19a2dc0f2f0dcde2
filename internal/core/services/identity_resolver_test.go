package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/mocks"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newResolver(source *mocks.MockIdentitySource, store *mocks.MockIdentityRepository, now time.Time) *services.IdentityResolverService {
	return services.NewIdentityResolver(
		source,
		store,
		domain.NewVendorClassifier(domain.DefaultVendorDomains()),
		services.IdentityResolverConfig{Concurrency: 4},
		testLogger(),
	).WithClock(func() time.Time { return now })
}

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	now := baseTime

	t.Run("remote lookup classifies work email", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "101").Return(nil, apperrors.ErrIdentityNotFound)
		source.On("Lookup", mock.Anything, "101").Return(&domain.AdminProfile{
			ID: "101", Name: "Ana", Email: "Ana@HireHoratio.co", Active: true,
		}, nil).Once()
		store.On("Upsert", mock.Anything, mock.AnythingOfType("domain.AgentIdentity")).Return(nil)

		identity := resolver.Resolve(ctx, "101", "")

		assert.Equal(t, "horatio", identity.Vendor)
		assert.Equal(t, "Ana", identity.Name)
		assert.False(t, identity.Fallback)
		assert.Equal(t, now, identity.ResolvedAt)
		source.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("session hit skips both tiers", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "101").Return(nil, apperrors.ErrIdentityNotFound).Once()
		source.On("Lookup", mock.Anything, "101").Return(&domain.AdminProfile{
			ID: "101", Email: "ana@boldr.io", Active: true,
		}, nil).Once()
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		first := resolver.Resolve(ctx, "101", "")
		second := resolver.Resolve(ctx, "101", "")

		assert.Equal(t, first, second)
		assert.Equal(t, 1, resolver.SessionSize())
		source.AssertNumberOfCalls(t, "Lookup", 1)
		store.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("fresh persistent hit skips the source", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		stored := &domain.AgentIdentity{
			RawID: "202", WorkEmail: "bo@boldrimpact.com", Vendor: "boldr",
			ResolvedAt: now.Add(-24 * time.Hour),
		}
		store.On("Get", mock.Anything, "202").Return(stored, nil)

		identity := resolver.Resolve(ctx, "202", "")

		assert.Equal(t, "boldr", identity.Vendor)
		source.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("stale persistent entry is refreshed", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		stored := &domain.AgentIdentity{
			RawID: "202", WorkEmail: "bo@gmail.com", Vendor: domain.VendorUnknown,
			ResolvedAt: now.Add(-8 * 24 * time.Hour),
		}
		store.On("Get", mock.Anything, "202").Return(stored, nil)
		source.On("Lookup", mock.Anything, "202").Return(&domain.AdminProfile{
			ID: "202", Email: "bo@boldrimpact.com", Active: true,
		}, nil)
		store.On("Upsert", mock.Anything, mock.MatchedBy(func(i domain.AgentIdentity) bool {
			return i.Vendor == "boldr" && i.ResolvedAt.Equal(now)
		})).Return(nil)

		identity := resolver.Resolve(ctx, "202", "")

		assert.Equal(t, "boldr", identity.Vendor)
		store.AssertExpectations(t)
	})

	t.Run("unknown work email retries with fallback email", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "303").Return(nil, apperrors.ErrIdentityNotFound)
		source.On("Lookup", mock.Anything, "303").Return(&domain.AdminProfile{
			ID: "303", Email: "carla@gmail.com", Active: true,
		}, nil)
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		identity := resolver.Resolve(ctx, "303", "carla@hirehoratio.co")

		assert.Equal(t, "horatio", identity.Vendor)
		assert.Equal(t, "carla@gmail.com", identity.WorkEmail)
		assert.False(t, identity.Fallback)
	})

	t.Run("source failure falls back and is cached", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "404").Return(nil, apperrors.ErrIdentityNotFound).Once()
		source.On("Lookup", mock.Anything, "404").
			Return(nil, fmt.Errorf("lookup admin: %w", apperrors.ErrIdentitySourceUnavailable)).Once()
		store.On("Upsert", mock.Anything, mock.MatchedBy(func(i domain.AgentIdentity) bool {
			return i.Fallback && i.Vendor == "boldr"
		})).Return(nil).Once()

		identity := resolver.Resolve(ctx, "404", "dan@boldr.io")
		again := resolver.Resolve(ctx, "404", "dan@boldr.io")

		assert.True(t, identity.Fallback)
		assert.Equal(t, "boldr", identity.Vendor)
		assert.Equal(t, "dan@boldr.io", identity.WorkEmail)
		assert.Equal(t, identity, again)
		source.AssertNumberOfCalls(t, "Lookup", 1)
		store.AssertExpectations(t)
	})

	t.Run("source failure without email is unknown", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "405").Return(nil, apperrors.ErrIdentityNotFound)
		source.On("Lookup", mock.Anything, "405").Return(nil, apperrors.ErrIdentityNotFound)
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		identity := resolver.Resolve(ctx, "405", "")

		assert.Equal(t, domain.VendorUnknown, identity.Vendor)
	})

	t.Run("store write failure still returns identity", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		store.On("Get", mock.Anything, "406").Return(nil, apperrors.ErrIdentityNotFound)
		source.On("Lookup", mock.Anything, "406").Return(&domain.AdminProfile{
			ID: "406", Email: "eve@boldr.io", Active: true,
		}, nil)
		store.On("Upsert", mock.Anything, mock.Anything).Return(fmt.Errorf("connection refused"))

		identity := resolver.Resolve(ctx, "406", "")

		assert.Equal(t, "boldr", identity.Vendor)
	})

	t.Run("cancelled caller leaves both tiers untouched", func(t *testing.T) {
		source := mocks.NewMockIdentitySource()
		store := mocks.NewMockIdentityRepository()
		resolver := newResolver(source, store, now)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		store.On("Get", mock.Anything, "407").Return(nil, apperrors.ErrIdentityNotFound)
		source.On("Lookup", mock.Anything, "407").
			Return(nil, fmt.Errorf("%w: %w", apperrors.ErrIdentitySourceUnavailable, context.Canceled)).Once()

		identity := resolver.Resolve(cancelled, "407", "fay@boldr.io")

		assert.True(t, identity.Fallback)
		assert.Equal(t, "boldr", identity.Vendor)
		assert.Zero(t, resolver.SessionSize())
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

		// A later healthy call reaches the source again
		source.On("Lookup", mock.Anything, "407").Return(&domain.AdminProfile{
			ID: "407", Name: "Fay", Email: "fay@boldr.io", Active: true,
		}, nil).Once()
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		healthy := resolver.Resolve(ctx, "407", "")

		assert.False(t, healthy.Fallback)
		assert.Equal(t, "Fay", healthy.Name)
		assert.Equal(t, 1, resolver.SessionSize())
		source.AssertNumberOfCalls(t, "Lookup", 2)
		store.AssertExpectations(t)
	})
}

func TestIdentityResolver_ResolveBatch(t *testing.T) {
	ctx := context.Background()
	source := mocks.NewMockIdentitySource()
	store := mocks.NewMockIdentityRepository()
	resolver := newResolver(source, store, baseTime)

	store.On("Get", mock.Anything, mock.Anything).Return(nil, apperrors.ErrIdentityNotFound)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	source.On("Lookup", mock.Anything, "1").Return(&domain.AdminProfile{ID: "1", Email: "a@boldr.io", Active: true}, nil).Once()
	source.On("Lookup", mock.Anything, "2").Return(nil, apperrors.ErrIdentitySourceUnavailable).Once()

	results := resolver.ResolveBatch(ctx, []ports.IdentityRequest{
		{RawID: "1"},
		{RawID: "2", FallbackEmail: ""},
		{RawID: "2", FallbackEmail: "b@hirehoratio.co"},
		{RawID: " "},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "boldr", results["1"].Vendor)
	assert.Equal(t, "horatio", results["2"].Vendor)
	assert.True(t, results["2"].Fallback)
	source.AssertExpectations(t)
}
