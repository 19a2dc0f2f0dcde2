package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/vendor-performance/internal/adapters/primary/validation"
	"github.com/lorrc/vendor-performance/internal/auth"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// AuthHandler exchanges API keys for access tokens
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	tokenTTL     time.Duration
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService ports.AuthService,
	tokenManager *auth.TokenManager,
	tokenTTL time.Duration,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		tokenTTL:     tokenTTL,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterRoutes sets up the routing for auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/token", h.HandleIssueToken)
}

// TokenRequest defines the expected JSON body for token issuance
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// Validate validates the token request
func (r *TokenRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("api_key", r.APIKey)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TokenResponse is returned on successful authentication
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleIssueToken verifies an API key and returns a JWT scoped to the
// analysis API.
func (h *AuthHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[TokenRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	client, err := h.authService.Authenticate(r.Context(), req.APIKey)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	token, err := h.tokenManager.GenerateToken(client, auth.ScopeAnalysis)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "issued access token", "client", client)

	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}
