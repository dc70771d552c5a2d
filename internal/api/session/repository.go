package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const keyPrefix = "conversation:"

// Repository persists ConversationState as JSON with a sliding TTL.
type Repository interface {
	// Load returns nil, nil when the session does not exist or has expired.
	Load(ctx context.Context, sessionID string) (*types.ConversationState, error)
	Save(ctx context.Context, state types.ConversationState) error
	Lock(ctx context.Context, sessionID string) (func(), error)
}

var _ Repository = (*RepositoryImpl)(nil)

type RepositoryImpl struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewRepository(store Store, ttl time.Duration, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *RepositoryImpl) Load(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	ctx, span := otel.Tracer("SessionRepository").Start(ctx, "Load", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	raw, err := r.store.Get(ctx, key(sessionID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store get failed")
		metrics.RecordExternalError(ctx, "session")
		return nil, types.NewExternalServiceError("session", "load", err)
	}
	if raw == nil {
		span.SetAttributes(attribute.Bool("session.found", false))
		return nil, nil
	}

	var state types.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		r.logger.ErrorContext(ctx, "Stored session is not valid JSON",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	if state.CollectedInfo == nil {
		state.CollectedInfo = map[string]string{}
	}
	span.SetAttributes(attribute.Bool("session.found", true))
	return &state, nil
}

func (r *RepositoryImpl) Save(ctx context.Context, state types.ConversationState) error {
	ctx, span := otel.Tracer("SessionRepository").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("session.id", state.SessionID),
		attribute.String("session.state", string(state.StateType)),
	))
	defer span.End()

	raw, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode session %s: %w", state.SessionID, err)
	}
	if err := r.store.SetWithTTL(ctx, key(state.SessionID), raw, r.ttl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store set failed")
		metrics.RecordExternalError(ctx, "session")
		return types.NewExternalServiceError("session", "save", err)
	}
	span.SetStatus(codes.Ok, "session saved")
	return nil
}

func (r *RepositoryImpl) Lock(ctx context.Context, sessionID string) (func(), error) {
	unlock, err := r.store.Lock(ctx, key(sessionID))
	if err != nil {
		return nil, types.NewExternalServiceError("session", "lock", err)
	}
	return unlock, nil
}
