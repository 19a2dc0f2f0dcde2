package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

// IdentityResolverConfig tunes cache freshness and batch fan-out.
type IdentityResolverConfig struct {
	TTL         time.Duration
	Concurrency int
}

// IdentityResolverService resolves raw agent ids to vendor-tagged identities
// through a session tier, a persistent tier and finally the identity source.
type IdentityResolverService struct {
	source      ports.IdentitySource
	store       ports.IdentityRepository
	classifier  *domain.VendorClassifier
	session     *sessionCache
	ttl         time.Duration
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

var _ ports.IdentityResolver = (*IdentityResolverService)(nil)

// NewIdentityResolver creates a new identity resolver.
func NewIdentityResolver(
	source ports.IdentitySource,
	store ports.IdentityRepository,
	classifier *domain.VendorClassifier,
	cfg IdentityResolverConfig,
	logger *slog.Logger,
) *IdentityResolverService {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultIdentityTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &IdentityResolverService{
		source:      source,
		store:       store,
		classifier:  classifier,
		session:     newSessionCache(),
		ttl:         cfg.TTL,
		concurrency: cfg.Concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With("component", "identity_resolver"),
	}
}

// WithClock replaces the resolver's clock. Used by tests.
func (s *IdentityResolverService) WithClock(now func() time.Time) *IdentityResolverService {
	s.now = now
	return s
}

// Resolve returns the identity for rawID. It never fails: when the identity
// source is unreachable the identity is synthesized from fallbackEmail.
// Every resolution, fallback included, is written to both cache tiers,
// except a fallback caused by the caller's context ending.
func (s *IdentityResolverService) Resolve(ctx context.Context, rawID, fallbackEmail string) domain.AgentIdentity {
	rawID = strings.TrimSpace(rawID)
	fallbackEmail = strings.TrimSpace(fallbackEmail)
	now := s.now()

	// 1. Session tier
	if identity, ok := s.session.get(rawID); ok && !identity.IsStale(now, s.ttl) {
		metrics.IdentityResolutions.WithLabelValues("session").Inc()
		return identity
	}

	// 2. Persistent tier
	if identity, ok := s.loadPersistent(ctx, rawID, now); ok {
		s.session.put(identity)
		metrics.IdentityResolutions.WithLabelValues("persistent").Inc()
		return identity
	}

	// 3. Identity source, with fallback
	identity, err := s.lookup(ctx, rawID, fallbackEmail, now)
	if err != nil && ctx.Err() != nil {
		// Cancelled or timed out by the caller; leave both tiers alone
		return identity
	}
	s.session.put(identity)
	if err := s.store.Upsert(ctx, identity); err != nil {
		s.logger.WarnContext(ctx, "failed to persist identity",
			"agent_id", rawID,
			"error", err,
		)
	}
	return identity
}

// ResolveBatch resolves distinct ids concurrently. One failing lookup never
// cancels its siblings; it simply yields a fallback identity.
func (s *IdentityResolverService) ResolveBatch(ctx context.Context, requests []ports.IdentityRequest) map[string]domain.AgentIdentity {
	unique := make(map[string]string, len(requests))
	order := make([]string, 0, len(requests))
	for _, req := range requests {
		id := strings.TrimSpace(req.RawID)
		if id == "" {
			continue
		}
		email, seen := unique[id]
		if !seen {
			order = append(order, id)
		}
		if email == "" {
			unique[id] = strings.TrimSpace(req.FallbackEmail)
		}
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.AgentIdentity, len(order))
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, id := range order {
		id := id
		fallbackEmail := unique[id]
		g.Go(func() error {
			identity := s.Resolve(ctx, id, fallbackEmail)
			mu.Lock()
			results[id] = identity
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// SessionSize returns the number of identities held in the session tier.
func (s *IdentityResolverService) SessionSize() int {
	return s.session.len()
}

func (s *IdentityResolverService) loadPersistent(ctx context.Context, rawID string, now time.Time) (domain.AgentIdentity, bool) {
	identity, err := s.store.Get(ctx, rawID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrIdentityNotFound) {
			s.logger.WarnContext(ctx, "identity store read failed",
				"agent_id", rawID,
				"error", err,
			)
		}
		return domain.AgentIdentity{}, false
	}
	if identity == nil || identity.IsStale(now, s.ttl) {
		return domain.AgentIdentity{}, false
	}
	return *identity, true
}

// lookup asks the identity source, returning a fallback identity together
// with the source error when it fails.
func (s *IdentityResolverService) lookup(ctx context.Context, rawID, fallbackEmail string, now time.Time) (domain.AgentIdentity, error) {
	profile, err := s.source.Lookup(ctx, rawID)
	if err == nil && profile == nil {
		err = apperrors.ErrIdentityNotFound
	}
	if err != nil {
		s.logger.WarnContext(ctx, "identity lookup failed, using fallback email",
			"agent_id", rawID,
			"fallback_email", fallbackEmail,
			"error", err,
		)
		metrics.IdentityResolutions.WithLabelValues("fallback").Inc()
		return domain.AgentIdentity{
			RawID:       rawID,
			WorkEmail:   fallbackEmail,
			PublicEmail: fallbackEmail,
			Vendor:      s.classifier.Classify(fallbackEmail),
			Active:      true,
			ResolvedAt:  now,
			Fallback:    true,
		}, err
	}

	vendor := s.classifier.Classify(profile.Email)
	if vendor == domain.VendorUnknown && fallbackEmail != "" {
		// Some accounts carry a personal system email; the address seen on
		// conversations is vendor-issued.
		vendor = s.classifier.Classify(fallbackEmail)
	}

	metrics.IdentityResolutions.WithLabelValues("remote").Inc()
	return domain.AgentIdentity{
		RawID:       rawID,
		Name:        profile.Name,
		WorkEmail:   profile.Email,
		PublicEmail: fallbackEmail,
		Vendor:      vendor,
		Active:      profile.Active,
		ResolvedAt:  now,
	}, nil
}
