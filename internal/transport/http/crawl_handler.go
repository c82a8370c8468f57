// Package http contains the chi handlers for the crawl control surface.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "socialpulse/internal/errors"
	"socialpulse/internal/middleware"
)

var validate = validator.New()

// CrawlHandler handles collection control requests
type CrawlHandler struct {
	service CrawlServiceInterface
	logger  *slog.Logger
}

// NewCrawlHandler creates a new crawl handler
func NewCrawlHandler(service CrawlServiceInterface, logger *slog.Logger) *CrawlHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "crawl")),
	}
}

// Routes mounts the control surface
func (h *CrawlHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/collect", h.Collect)
	r.Get("/status", h.Status)
	r.Post("/stop", h.Stop)
	r.Post("/reset", h.Reset)
	return r
}

// CollectRequest represents the request to start a collection run
type CollectRequest struct {
	Sources    []string `json:"sources" validate:"required,min=1,dive,required"`
	TargetDate string   `json:"target_date" validate:"required"`

	targetDate time.Time
}

// Bind implements the render.Binder interface for request validation.
// The target date must parse strictly as YYYY-MM-DD and not lie in the
// future.
func (r *CollectRequest) Bind(req *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	parsed, err := time.Parse("2006-01-02", r.TargetDate)
	if err != nil {
		return fmt.Errorf("%w: %q is not a YYYY-MM-DD date", apperrors.ErrInvalidTargetDate, r.TargetDate)
	}
	if parsed.After(time.Now()) {
		return fmt.Errorf("%w: %q is in the future", apperrors.ErrInvalidTargetDate, r.TargetDate)
	}
	r.targetDate = parsed
	return nil
}

// Collect validates the request and dispatches a background run.
// Returns 409 with the current status when a run is already in flight.
func (h *CrawlHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &CollectRequest{}
	if err := render.Bind(r, req); err != nil {
		h.logger.WarnContext(ctx, "collect request rejected", slog.String("error", err.Error()))
		render.Render(w, r, apperrors.NewValidationError(err.Error(), r.URL.Path).
			WithExtension("trace_id", middleware.GetReqID(ctx)))
		return
	}

	if err := h.service.StartCollection(ctx, req.Sources, req.targetDate); err != nil {
		if errors.Is(err, apperrors.ErrPipelineRunning) {
			render.Render(w, r, apperrors.NewPipelineRunningError(r.URL.Path).
				WithExtension("status", h.service.Status(ctx)).
				WithExtension("trace_id", middleware.GetReqID(ctx)))
			return
		}
		h.logger.ErrorContext(ctx, "failed to dispatch collection",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.NewInternalError(r.URL.Path).
			WithExtension("trace_id", middleware.GetReqID(ctx)))
		return
	}

	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Status returns the live status snapshot as-is
func (h *CrawlHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// Stop raises the cooperative stop flag; succeeds even when idle
func (h *CrawlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.service.RequestStop(r.Context())
	render.JSON(w, r, map[string]string{"status": "stop_requested"})
}

// Reset clears the status; operator recovery after an error state
func (h *CrawlHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset(r.Context())
	render.JSON(w, r, map[string]string{"status": "reset"})
}
