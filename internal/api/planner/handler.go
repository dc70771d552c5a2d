package planner

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// PlanTrip plans an itinerary from an intent in the request body.
func (h *Handler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "PlanTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/plan"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "PlanTrip"))

	var intent types.TripIntent
	if err := api.DecodeJSONBody(w, r, &intent); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	it, err := h.service.PlanTrip(ctx, intent)
	if err != nil {
		h.fail(w, r, l, span, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// PlanSession plans from the intent a finished conversation collected.
func (h *Handler) PlanSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "PlanSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/chat/{sessionID}/plan"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "PlanSession"))

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	it, err := h.service.PlanSession(ctx, sessionID)
	if err != nil {
		h.fail(w, r, l, span, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, l *slog.Logger, span trace.Span, err error) {
	status := api.StatusForError(err)
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		msg = "An upstream service failed, please retry"
	case status >= http.StatusInternalServerError:
		msg = "Failed to plan trip"
	}
	if status >= http.StatusInternalServerError && r.Context().Err() == nil {
		span.RecordError(err)
		l.ErrorContext(r.Context(), "Planning failed", slog.Any("error", err))
	}
	api.ErrorResponse(w, r, status, msg)
}
