package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const (
	defaultStructuredLimit  = 100
	defaultSemanticTopK     = 50
	defaultRetrievalTimeout = 5 * time.Second
)

// Retrieval holds the raw output of both channels, each in its own rank order.
type Retrieval struct {
	Structured []types.PlaceCandidate
	Semantic   []types.PlaceCandidate
	Warnings   []string
}

var _ Retriever = (*RetrieverImpl)(nil)

// Retriever collects candidate places for an intent.
type Retriever interface {
	Retrieve(ctx context.Context, intent types.TripIntent) (*Retrieval, error)
}

type RetrieverImpl struct {
	repo     Repository
	embedder generativeAI.Embedder
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

// NewRetriever builds the two-channel retriever. A nil embedder disables the semantic
// channel, which then always reports a warning.
func NewRetriever(repo Repository, embedder generativeAI.Embedder, cfg config.RetrievalConfig, logger *slog.Logger) *RetrieverImpl {
	if cfg.StructuredLimit <= 0 {
		cfg.StructuredLimit = defaultStructuredLimit
	}
	if cfg.SemanticTopK <= 0 {
		cfg.SemanticTopK = defaultSemanticTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRetrievalTimeout
	}
	return &RetrieverImpl{
		repo:     repo,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Filter derives the structured channel filter from intent.
func (r *RetrieverImpl) Filter(intent types.TripIntent) types.PlaceFilter {
	filter := types.PlaceFilter{
		Region:     intent.Destination,
		Categories: CategoriesForThemes(intent.Themes),
		Limit:      r.cfg.StructuredLimit,
	}
	if intent.Center != nil && intent.RadiusKm > 0 {
		center := *intent.Center
		filter.Center = &center
		filter.RadiusKm = intent.RadiusKm
	}
	if r.cfg.MinRating > 0 {
		minRating := r.cfg.MinRating
		filter.MinRating = &minRating
	}
	return filter
}

// Retrieve runs both channels concurrently, each under its own timeout. A failed channel
// contributes an empty list and a warning; only both failing is an error.
func (r *RetrieverImpl) Retrieve(ctx context.Context, intent types.TripIntent) (*Retrieval, error) {
	ctx, span := otel.Tracer("PlaceRetriever").Start(ctx, "Retrieve", trace.WithAttributes(
		attribute.String("intent.destination", intent.Destination),
		attribute.StringSlice("intent.themes", intent.Themes),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Retrieve"))

	var out Retrieval
	var structErr, semanticErr error
	var g errgroup.Group

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		out.Structured, structErr = r.repo.StructuredSearch(cctx, r.Filter(intent))
		structErr = channelError(cctx, "structured_search", structErr)
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		out.Semantic, semanticErr = r.semantic(cctx, intent)
		semanticErr = channelError(cctx, "vector_search", semanticErr)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval cancelled")
		return nil, err
	}

	if structErr != nil && semanticErr != nil {
		err := types.NewExternalServiceError("catalog", "retrieve", errors.Join(structErr, semanticErr))
		span.RecordError(err)
		span.SetStatus(codes.Error, "both channels failed")
		l.ErrorContext(ctx, "Both retrieval channels failed", slog.Any("error", err))
		return nil, err
	}
	if structErr != nil {
		out.Structured = nil
		out.Warnings = append(out.Warnings, fmt.Sprintf("structured retrieval unavailable: %v", structErr))
		metrics.RecordFallback(ctx, "retrieval", "structured_failed")
		l.WarnContext(ctx, "Structured channel failed, continuing with semantic results", slog.Any("error", structErr))
	}
	if semanticErr != nil {
		out.Semantic = nil
		out.Warnings = append(out.Warnings, fmt.Sprintf("semantic retrieval unavailable: %v", semanticErr))
		metrics.RecordFallback(ctx, "retrieval", "semantic_failed")
		l.WarnContext(ctx, "Semantic channel failed, continuing with structured results", slog.Any("error", semanticErr))
	}

	span.SetAttributes(
		attribute.Int("results.structured", len(out.Structured)),
		attribute.Int("results.semantic", len(out.Semantic)),
	)
	span.SetStatus(codes.Ok, "candidates retrieved")
	l.InfoContext(ctx, "Candidates retrieved",
		slog.Int("structured", len(out.Structured)),
		slog.Int("semantic", len(out.Semantic)))
	return &out, nil
}

func (r *RetrieverImpl) semantic(ctx context.Context, intent types.TripIntent) ([]types.PlaceCandidate, error) {
	if r.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	embedding, err := r.embedder.Embed(ctx, QueryText(intent))
	if err != nil {
		return nil, err
	}
	return r.repo.VectorSearch(ctx, embedding, intent.Destination, r.cfg.SemanticTopK)
}

func channelError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if types.IsExternalServiceError(err) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", types.ErrTimeout, err)
	}
	return types.NewExternalServiceError("catalog", op, err)
}
