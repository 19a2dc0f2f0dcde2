package mocks

import (
	"context"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockIdentitySource is a mock implementation of ports.IdentitySource
type MockIdentitySource struct {
	mock.Mock
}

func NewMockIdentitySource() *MockIdentitySource {
	return &MockIdentitySource{}
}

func (m *MockIdentitySource) Lookup(ctx context.Context, adminID string) (*domain.AdminProfile, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminProfile), args.Error(1)
}

// MockIdentityRepository is a mock implementation of ports.IdentityRepository
type MockIdentityRepository struct {
	mock.Mock
}

func NewMockIdentityRepository() *MockIdentityRepository {
	return &MockIdentityRepository{}
}

func (m *MockIdentityRepository) Get(ctx context.Context, rawID string) (*domain.AgentIdentity, error) {
	args := m.Called(ctx, rawID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentIdentity), args.Error(1)
}

func (m *MockIdentityRepository) Upsert(ctx context.Context, identity domain.AgentIdentity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

// MockSnapshotRepository is a mock implementation of ports.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{}
}

func (m *MockSnapshotRepository) UpsertWeek(ctx context.Context, rows []domain.WeeklySnapshotRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockSnapshotRepository) ListWeek(ctx context.Context, vendor string, weekStart time.Time) ([]domain.WeeklySnapshotRow, error) {
	args := m.Called(ctx, vendor, weekStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeeklySnapshotRow), args.Error(1)
}

func (m *MockSnapshotRepository) ListAgentHistory(ctx context.Context, vendor, agentID string, limit int) ([]domain.WeeklySnapshotRow, error) {
	args := m.Called(ctx, vendor, agentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeeklySnapshotRow), args.Error(1)
}

// MockTaxonomyClassifier is a mock implementation of ports.TaxonomyClassifier
type MockTaxonomyClassifier struct {
	mock.Mock
}

func NewMockTaxonomyClassifier() *MockTaxonomyClassifier {
	return &MockTaxonomyClassifier{}
}

func (m *MockTaxonomyClassifier) Classify(text string, tags, topics []string) []domain.TaxonomyMatch {
	args := m.Called(text, tags, topics)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.TaxonomyMatch)
}

// MockIdentityResolver is a mock implementation of ports.IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func NewMockIdentityResolver() *MockIdentityResolver {
	return &MockIdentityResolver{}
}

func (m *MockIdentityResolver) Resolve(ctx context.Context, rawID, fallbackEmail string) domain.AgentIdentity {
	args := m.Called(ctx, rawID, fallbackEmail)
	return args.Get(0).(domain.AgentIdentity)
}

func (m *MockIdentityResolver) ResolveBatch(ctx context.Context, requests []ports.IdentityRequest) map[string]domain.AgentIdentity {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]domain.AgentIdentity)
}

// MockAnalysisService is a mock implementation of ports.AnalysisService
type MockAnalysisService struct {
	mock.Mock
}

func NewMockAnalysisService() *MockAnalysisService {
	return &MockAnalysisService{}
}

func (m *MockAnalysisService) AnalyzeVendor(ctx context.Context, params ports.AnalyzeVendorParams) (*domain.VendorPerformanceReport, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorPerformanceReport), args.Error(1)
}

// MockSnapshotService is a mock implementation of ports.SnapshotService
type MockSnapshotService struct {
	mock.Mock
}

func NewMockSnapshotService() *MockSnapshotService {
	return &MockSnapshotService{}
}

func (m *MockSnapshotService) UpsertWeek(ctx context.Context, vendor string, weekStart, weekEnd time.Time, agents []*domain.AgentPerformanceMetrics) error {
	args := m.Called(ctx, vendor, weekStart, weekEnd, agents)
	return args.Error(0)
}

func (m *MockSnapshotService) WeekOverWeek(ctx context.Context, vendor string, currentWeekStart time.Time) (map[string]domain.WeekOverWeekDelta, error) {
	args := m.Called(ctx, vendor, currentWeekStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.WeekOverWeekDelta), args.Error(1)
}

func (m *MockSnapshotService) Trend(ctx context.Context, vendor, agentID string, weeksBack int) ([]domain.WeeklySnapshotRow, error) {
	args := m.Called(ctx, vendor, agentID, weeksBack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeeklySnapshotRow), args.Error(1)
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Authenticate(ctx context.Context, apiKey string) (string, error) {
	args := m.Called(ctx, apiKey)
	return args.String(0), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
