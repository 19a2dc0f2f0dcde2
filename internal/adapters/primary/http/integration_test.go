package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	wsAdapter "github.com/lorrc/vendor-performance/internal/adapters/primary/websocket"
	pgadapter "github.com/lorrc/vendor-performance/internal/adapters/secondary/postgres"
	"github.com/lorrc/vendor-performance/internal/adapters/secondary/taxonomy"
	"github.com/lorrc/vendor-performance/internal/auth"
	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/mocks"
	"github.com/lorrc/vendor-performance/internal/core/services"
)

const integrationAPIKey = "integration-key"

// startPostgres runs a migrated database for the lifetime of the test.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := pgcontainer.Run(ctx, "postgres:16-alpine",
		pgcontainer.WithDatabase("test-db"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, pgadapter.Migrate(connStr, "../../../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newIntegrationRouter(t *testing.T, pool *pgxpool.Pool, source *mocks.MockIdentitySource) stdhttp.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := wsAdapter.NewHub(logger)
	go hub.Run(ctx)

	hash, err := services.HashAPIKey(integrationAPIKey)
	require.NoError(t, err)

	detector := services.NewCompositeEscalationDetector(services.NewTextEscalationDetector(nil))
	resolver := services.NewIdentityResolver(
		source,
		pgadapter.NewIdentityRepository(pool),
		domain.NewVendorClassifier(domain.DefaultVendorDomains()),
		services.IdentityResolverConfig{},
		logger,
	)
	snapshots := services.NewSnapshotService(pgadapter.NewSnapshotRepository(pool), hub, logger)
	analysis := services.NewAnalysisService(services.AnalysisDeps{
		Resolver:    resolver,
		Taxonomy:    taxonomy.NewKeywordClassifier(taxonomy.DefaultRules()),
		Aggregator:  services.NewMetricsAggregator(detector, services.MetricsAggregatorConfig{}),
		Classifier:  services.NewPerformanceClassifier(detector),
		Builder:     services.NewVendorReportBuilder(),
		Snapshots:   snapshots,
		Broadcaster: hub,
	}, logger)

	tm := auth.NewTokenManager("integration-secret", time.Hour)
	errorHandler := NewErrorHandler(logger)

	return NewRouter(RouterConfig{
		Logger:       logger,
		TokenManager: tm,
		Auth:         NewAuthHandler(services.NewAuthService(map[string]string{"dashboard": hash}), tm, time.Hour, errorHandler, logger),
		Reports:      NewReportHandler(analysis, snapshots, errorHandler, logger),
		Identity:     NewIdentityHandler(resolver, errorHandler, logger),
		Health:       NewHealthHandler(pool, "integration"),
	})
}

func call(t *testing.T, router stdhttp.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func weekOfConversations(week time.Time, closedByBoldr int) []map[string]any {
	convs := make([]map[string]any, 0, closedByBoldr+2)
	for i := 0; i < closedByBoldr; i++ {
		created := week.Add(time.Duration(i+1) * time.Hour)
		convs = append(convs, map[string]any{
			"id":                     week.Format("0102") + "-" + string(rune('a'+i)),
			"created_at":             created.Unix(),
			"updated_at":             created.Add(2 * time.Hour).Unix(),
			"state":                  "closed",
			"assignee_id":            101,
			"assignee_email":         "ada@boldr.io",
			"rating":                 5,
			"first_response_seconds": 600,
			"full_text":              "customer cannot log in, password reset link expired",
		})
	}
	// Another vendor's agent is excluded from the boldr report
	convs = append(convs, map[string]any{
		"id":             week.Format("0102") + "-h",
		"created_at":     week.Add(time.Hour).Format(time.RFC3339),
		"state":          "open",
		"assignee_id":    "202",
		"assignee_email": "sam@hirehoratio.co",
	})
	// Unassigned conversations are counted but not attributed
	convs = append(convs, map[string]any{
		"id":    week.Format("0102") + "-u",
		"state": "open",
	})
	return convs
}

func TestIntegration_WeeklyReportLifecycle(t *testing.T) {
	pool := startPostgres(t)

	source := mocks.NewMockIdentitySource()
	source.On("Lookup", mock.Anything, "101").
		Return(&domain.AdminProfile{ID: "101", Name: "Ada", Email: "ada@boldr.io", Active: true}, nil)
	source.On("Lookup", mock.Anything, "202").
		Return(&domain.AdminProfile{ID: "202", Name: "Sam", Email: "sam@hirehoratio.co", Active: true}, nil)

	router := newIntegrationRouter(t, pool, source)

	// Exchange the API key for a token
	rec := call(t, router, stdhttp.MethodPost, "/api/v1/auth/token", "", map[string]string{"api_key": integrationAPIKey})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	var tokenResp TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tokenResp))
	require.NotEmpty(t, tokenResp.AccessToken)
	token := tokenResp.AccessToken

	first := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 7)

	for _, run := range []struct {
		week   time.Time
		closed int
	}{{first, 3}, {second, 4}} {
		rec = call(t, router, stdhttp.MethodPost, "/api/v1/vendors/boldr/reports", token, map[string]any{
			"week_start":    run.week.Format(time.DateOnly),
			"persist":       true,
			"conversations": weekOfConversations(run.week, run.closed),
		})
		require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data domain.VendorPerformanceReport `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		report := resp.Data
		assert.Equal(t, "boldr", report.Vendor)
		assert.True(t, report.SnapshotStored)
		require.Len(t, report.Agents, 1)
		assert.Equal(t, "101", report.Agents[0].Identity.RawID)
		assert.Equal(t, run.closed, report.Agents[0].TotalConversations)
	}

	t.Run("week over week compares stored weeks", func(t *testing.T) {
		rec := call(t, router, stdhttp.MethodGet, "/api/v1/vendors/boldr/weeks/2025-03-10/changes", token, nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data map[string]domain.WeekOverWeekDelta `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		delta, ok := resp.Data["101"]
		require.True(t, ok)
		assert.False(t, delta.IsNew)
		require.NotNil(t, delta.Previous)
		assert.Equal(t, 3, delta.Previous.TotalConversations)
		assert.Equal(t, 4, delta.Current.TotalConversations)
	})

	t.Run("trend is newest first", func(t *testing.T) {
		rec := call(t, router, stdhttp.MethodGet, "/api/v1/vendors/boldr/agents/101/trend?weeks=4", token, nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

		var resp ListResponse[domain.WeeklySnapshotRow]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, 2, resp.Count)
		assert.True(t, resp.Data[0].WeekStart.Equal(second))
		assert.True(t, resp.Data[1].WeekStart.Equal(first))
	})

	t.Run("unknown week is not found", func(t *testing.T) {
		rec := call(t, router, stdhttp.MethodGet, "/api/v1/vendors/boldr/weeks/2024-01-01/changes", token, nil)
		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})

	t.Run("identity served from cache", func(t *testing.T) {
		rec := call(t, router, stdhttp.MethodGet, "/api/v1/agents/101/identity", token, nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data domain.AgentIdentity `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "boldr", resp.Data.Vendor)
		assert.Equal(t, "Ada", resp.Data.Name)
	})

	t.Run("analysis requires a token", func(t *testing.T) {
		rec := call(t, router, stdhttp.MethodGet, "/api/v1/vendors/boldr/agents/101/trend", "", nil)
		assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})

	source.AssertExpectations(t)
}
