package ports

import (
	"context"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

// IdentitySource looks up admin profiles on the support platform. Errors
// wrap apperrors.ErrIdentityNotFound or apperrors.ErrIdentitySourceUnavailable.
type IdentitySource interface {
	Lookup(ctx context.Context, adminID string) (*domain.AdminProfile, error)
}

// TaxonomyClassifier labels free text with categories.
type TaxonomyClassifier interface {
	Classify(text string, tags, topics []string) []domain.TaxonomyMatch
}

// EscalationDetector decides whether a conversation was escalated.
type EscalationDetector interface {
	IsEscalated(conversation domain.Conversation) bool
}

// EventBroadcaster defines the port for sending real-time events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// IdentityRequest asks for one agent id, with the email seen on its
// conversations as a fallback.
type IdentityRequest struct {
	RawID         string
	FallbackEmail string
}

// IdentityResolver defines the port for agent identity resolution.
type IdentityResolver interface {
	Resolve(ctx context.Context, rawID, fallbackEmail string) domain.AgentIdentity
	ResolveBatch(ctx context.Context, requests []IdentityRequest) map[string]domain.AgentIdentity
}

// AnalyzeVendorParams defines the input for a vendor analysis run.
type AnalyzeVendorParams struct {
	Vendor        string
	WeekStart     time.Time
	WeekEnd       time.Time
	Conversations []domain.Conversation
	Persist       bool
}

// AnalysisService defines the port for running vendor analyses.
type AnalysisService interface {
	AnalyzeVendor(ctx context.Context, params AnalyzeVendorParams) (*domain.VendorPerformanceReport, error)
}

// SnapshotService defines the port for weekly history.
type SnapshotService interface {
	UpsertWeek(ctx context.Context, vendor string, weekStart, weekEnd time.Time, agents []*domain.AgentPerformanceMetrics) error
	WeekOverWeek(ctx context.Context, vendor string, currentWeekStart time.Time) (map[string]domain.WeekOverWeekDelta, error)
	Trend(ctx context.Context, vendor, agentID string, weeksBack int) ([]domain.WeeklySnapshotRow, error)
}

// AuthService defines the port for authenticating API clients.
type AuthService interface {
	// Authenticate returns the client name owning apiKey.
	Authenticate(ctx context.Context, apiKey string) (string, error)
}
