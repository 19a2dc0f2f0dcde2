package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/vendor-performance/internal/adapters/primary/validation"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

const (
	maxConversationsPerReport = 50000
	defaultTrendWeeks         = 4
	maxTrendWeeks             = 52
)

// ReportHandler serves vendor analysis and weekly history endpoints
type ReportHandler struct {
	analysisService ports.AnalysisService
	snapshotService ports.SnapshotService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	analysisService ports.AnalysisService,
	snapshotService ports.SnapshotService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ReportHandler {
	return &ReportHandler{
		analysisService: analysisService,
		snapshotService: snapshotService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "report"),
	}
}

// Router sets up a new chi Router for all vendor routes.
func (h *ReportHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for vendor endpoints, mounted at /vendors.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{vendor}", func(r chi.Router) {
		r.Post("/reports", h.HandleAnalyzeVendor)
		r.Get("/weeks/{weekStart}/changes", h.HandleWeekOverWeek)
		r.Get("/agents/{agentID}/trend", h.HandleAgentTrend)
	})
}

// --- Request DTOs ---

// AnalyzeVendorRequest defines the expected JSON body for an analysis run
type AnalyzeVendorRequest struct {
	WeekStart     string            `json:"week_start"`
	WeekEnd       string            `json:"week_end"`
	Persist       bool              `json:"persist"`
	Conversations []ConversationDTO `json:"conversations"`
}

// Validate validates the analysis request
func (r *AnalyzeVendorRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("week_start", r.WeekStart).
		Date("week_start", r.WeekStart).
		Date("week_end", r.WeekEnd)

	v.Custom("conversations", len(r.Conversations) > 0, "At least one conversation is required").
		Max("conversations", len(r.Conversations), maxConversationsPerReport)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// period returns the parsed week bounds; a missing end is left zero.
func (r *AnalyzeVendorRequest) period() (time.Time, time.Time, error) {
	start, err := validation.ParseDate(r.WeekStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if r.WeekEnd == "" {
		return start, time.Time{}, nil
	}
	end, err := validation.ParseDate(r.WeekEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func vendorParam(r *http.Request) (string, error) {
	vendor := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "vendor")))
	v := validation.NewValidator()
	v.Required("vendor", vendor).
		Vendor("vendor", vendor).
		MaxLength("vendor", vendor, 64)
	if v.HasErrors() {
		return "", v.Errors()
	}
	return vendor, nil
}

// --- Handlers ---

// HandleAnalyzeVendor runs the analysis pipeline over the supplied conversations.
func (h *ReportHandler) HandleAnalyzeVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := vendorParam(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[AnalyzeVendorRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	weekStart, weekEnd, err := req.period()
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid week bounds"))
		return
	}

	report, err := h.analysisService.AnalyzeVendor(r.Context(), ports.AnalyzeVendorParams{
		Vendor:        vendor,
		WeekStart:     weekStart,
		WeekEnd:       weekEnd,
		Conversations: toDomainConversations(req.Conversations),
		Persist:       req.Persist,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, report)
}

// HandleWeekOverWeek returns per-agent deltas between a stored week and the one before it.
func (h *ReportHandler) HandleWeekOverWeek(w http.ResponseWriter, r *http.Request) {
	vendor, err := vendorParam(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	rawWeek := chi.URLParam(r, "weekStart")
	v := validation.NewValidator()
	v.Required("weekStart", rawWeek).Date("weekStart", rawWeek)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}
	weekStart, _ := validation.ParseDate(rawWeek)

	changes, err := h.snapshotService.WeekOverWeek(r.Context(), vendor, weekStart)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, changes)
}

// HandleAgentTrend returns an agent's stored weeks, newest first.
func (h *ReportHandler) HandleAgentTrend(w http.ResponseWriter, r *http.Request) {
	vendor, err := vendorParam(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	agentID := strings.TrimSpace(chi.URLParam(r, "agentID"))
	weeks := min(validation.ParseIntQueryParam(r, "weeks", defaultTrendWeeks), maxTrendWeeks)

	v := validation.NewValidator()
	v.Required("agentID", agentID).
		Min("weeks", weeks, 1)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	rows, err := h.snapshotService.Trend(r.Context(), vendor, agentID, weeks)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, rows)
}
