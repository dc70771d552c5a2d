package intent

import (
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api"
)

type ExtractRequest struct {
	Text string `json:"text"`
}

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

// Extract parses a free-text trip request into an intent.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("IntentHandler").Start(r.Context(), "Extract", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/intent"),
	))
	defer span.End()

	var req ExtractRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body", slog.String("handler", "Extract"), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "text is required")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ExtractIntent(ctx, req.Text))
}
