package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/vendor-performance/internal/adapters/primary/validation"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/logging"
)

const maxAgentIDLength = 128

// IdentityHandler exposes agent identity resolution
type IdentityHandler struct {
	resolver     ports.IdentityResolver
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(resolver ports.IdentityResolver, errorHandler *ErrorHandler, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		resolver:     resolver,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "identity"),
	}
}

// RegisterRoutes sets up the routing for agent endpoints, mounted at /agents.
func (h *IdentityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{agentID}/identity", h.HandleResolveIdentity)
}

// HandleResolveIdentity resolves one agent. Resolution never fails: when the
// support platform is unreachable the response carries a fallback identity.
func (h *IdentityHandler) HandleResolveIdentity(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(chi.URLParam(r, "agentID"))
	fallbackEmail := strings.TrimSpace(r.URL.Query().Get("fallback_email"))

	v := validation.NewValidator()
	v.Required("agentID", agentID).
		MaxLength("agentID", agentID, maxAgentIDLength).
		Email("fallback_email", fallbackEmail)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	ctx := logging.WithAgentID(r.Context(), agentID)
	identity := h.resolver.Resolve(ctx, agentID, fallbackEmail)
	if identity.Fallback {
		h.logger.WarnContext(ctx, "served fallback identity")
	}

	WriteSuccess(w, identity)
}
