package supportapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

// Config configures the admin API client.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             RetryConfig
}

// AdminClient looks up admin profiles on the support platform.
type AdminClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *slog.Logger
}

var _ ports.IdentitySource = (*AdminClient)(nil)

type adminResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active *bool  `json:"active"`
	Vendor string `json:"vendor"`
}

// NewAdminClient creates a new admin API client.
func NewAdminClient(cfg Config, logger *slog.Logger) *AdminClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 600
	}

	burst := cfg.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &AdminClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst),
		retry:      cfg.Retry.withDefaults(),
		logger:     logger.With("component", "support_api"),
	}
}

// Lookup fetches the admin profile for adminID.
func (c *AdminClient) Lookup(ctx context.Context, adminID string) (*domain.AdminProfile, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, apperrors.ErrAgentIDRequired
	}

	var profile *domain.AdminProfile
	err := c.retry.do(ctx, func() error {
		var err error
		profile, err = c.fetch(ctx, adminID)
		return err
	})

	switch {
	case err == nil:
		metrics.IdentitySourceCalls.WithLabelValues("success").Inc()
		return profile, nil
	case errors.Is(err, apperrors.ErrIdentityNotFound):
		metrics.IdentitySourceCalls.WithLabelValues("not_found").Inc()
		return nil, err
	default:
		metrics.IdentitySourceCalls.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "admin lookup failed",
			"agent_id", adminID,
			"error", err,
		)
		return nil, fmt.Errorf("lookup admin %s: %w: %v", adminID, apperrors.ErrIdentitySourceUnavailable, err)
	}
}

func (c *AdminClient) fetch(ctx context.Context, adminID string) (*domain.AdminProfile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admins/"+url.PathEscape(adminID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("admin %s: %w", adminID, apperrors.ErrIdentityNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &statusError{code: resp.StatusCode}
	}

	var body adminResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode admin %s: %w", adminID, err)
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}
	id := body.ID
	if id == "" {
		id = adminID
	}

	return &domain.AdminProfile{
		ID:         id,
		Name:       body.Name,
		Email:      body.Email,
		Active:     active,
		VendorHint: body.Vendor,
	}, nil
}
