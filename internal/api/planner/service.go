package planner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/accommodation"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/ranking"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// Service turns a trip intent into an itinerary.
type Service interface {
	PlanTrip(ctx context.Context, intent types.TripIntent) (*types.Itinerary, error)
	// PlanSession plans from the intent stored by a finished conversation.
	PlanSession(ctx context.Context, sessionID string) (*types.Itinerary, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	retriever poi.Retriever
	ranker    *ranking.Ranker
	scheduler *itinerary.Scheduler
	oracle    itinerary.Oracle
	lodging   accommodation.Service
	sessions  session.Repository
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(retriever poi.Retriever, ranker *ranking.Ranker, oracle itinerary.Oracle,
	lodging accommodation.Service, sessions session.Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		retriever: retriever,
		ranker:    ranker,
		scheduler: itinerary.NewScheduler(logger),
		oracle:    oracle,
		lodging:   lodging,
		sessions:  sessions,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *ServiceImpl) PlanTrip(ctx context.Context, intent types.TripIntent) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "PlanTrip", trace.WithAttributes(
		attribute.Int("intent.days", intent.Days),
		attribute.StringSlice("intent.themes", intent.Themes),
		attribute.String("intent.destination", intent.Destination),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "PlanTrip"))

	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.Get().PlanDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	intent = s.withDefaults(intent)
	if err := intent.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid intent")
		l.InfoContext(ctx, "Rejected invalid intent", slog.Any("error", err))
		outcome = "invalid"
		return nil, err
	}

	retrieved, err := s.retriever.Retrieve(ctx, intent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		l.ErrorContext(ctx, "Candidate retrieval failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}

	ranked := s.ranker.Fuse(retrieved.Structured, retrieved.Semantic, intent)
	l.DebugContext(ctx, "Candidates ranked",
		slog.Int("structured", len(retrieved.Structured)),
		slog.Int("semantic", len(retrieved.Semantic)),
		slog.Int("ranked", len(ranked)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it := s.scheduler.Schedule(ctx, ranked, intent, s.oracle)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled during scheduling")
		return nil, err
	}
	it.Warnings = append(slices.Clone(retrieved.Warnings), it.Warnings...)

	locations := make(map[string]types.Location, len(ranked))
	for _, c := range ranked {
		locations[c.ID] = c.Location
	}
	s.lodging.AssignNights(ctx, intent, &it, locations)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled during accommodation lookup")
		return nil, err
	}

	outcome = "ok"
	if it.Partial {
		outcome = "partial"
	}
	if len(it.Warnings) > 0 {
		metrics.Get().PlanWarningsTotal.Add(ctx, int64(len(it.Warnings)))
	}
	span.SetAttributes(
		attribute.String("itinerary.id", it.ID.String()),
		attribute.Int("itinerary.visits", it.VisitCount()),
		attribute.Int("itinerary.warnings", len(it.Warnings)),
	)
	span.SetStatus(codes.Ok, "itinerary planned")
	l.InfoContext(ctx, "Itinerary planned",
		slog.String("itinerary_id", it.ID.String()),
		slog.Int("visits", it.VisitCount()),
		slog.Bool("partial", it.Partial),
		slog.Int("warnings", len(it.Warnings)))
	return &it, nil
}

func (s *ServiceImpl) PlanSession(ctx context.Context, sessionID string) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "PlanSession", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return nil, types.ErrSessionNotFound
	}
	if state.StateType != types.StateComplete || state.Intent == nil {
		return nil, types.ErrSessionIncomplete
	}
	return s.PlanTrip(ctx, *state.Intent)
}

// withDefaults fills the optional parts of an intent. Days and explicit values are
// left for Validate to judge.
func (s *ServiceImpl) withDefaults(intent types.TripIntent) types.TripIntent {
	if intent.TimeWindow == (types.TimeWindow{}) {
		intent.TimeWindow = types.TimeWindow{Start: types.DefaultDayStart, End: types.DefaultDayEnd}
	}
	if len(intent.Themes) == 0 {
		intent.Themes = []string{types.ThemeSightseeing}
	}
	if intent.AccommodationPref.Type == "" {
		intent.AccommodationPref.Type = types.AccommodationAny
	}
	if intent.StartDate.IsZero() {
		now := s.now()
		intent.StartDate = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	}
	return intent
}
