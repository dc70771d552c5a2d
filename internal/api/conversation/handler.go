package conversation

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
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

// Chat handles one conversation turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ConversationHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/chat"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Chat"))

	var req ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)

	reply, err := h.service.CollectTurn(ctx, req.SessionID, req.Message)
	if err != nil {
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to collect turn", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusForError(err), "Failed to process message")
		return
	}

	l.InfoContext(ctx, "Turn collected",
		slog.String("session_id", reply.SessionID),
		slog.Bool("done", reply.Done))
	api.WriteJSONResponse(w, r, http.StatusOK, reply)
}

// GetSession returns the stored conversation state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ConversationHandler").Start(r.Context(), "GetSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/chat/{sessionID}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetSession"))

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	state, err := h.service.GetState(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, types.ErrSessionNotFound) {
			span.RecordError(err)
			l.ErrorContext(ctx, "Failed to load session", slog.Any("error", err))
		}
		api.ErrorResponse(w, r, api.StatusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, state)
}
