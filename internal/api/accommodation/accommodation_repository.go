package accommodation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-trip-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the accommodation catalog.
type Repository interface {
	Search(ctx context.Context, filter types.AccommodationFilter) ([]types.AccommodationCandidate, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewRepository(pgpool database.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) Search(ctx context.Context, filter types.AccommodationFilter) ([]types.AccommodationCandidate, error) {
	ctx, span := otel.Tracer("AccommodationRepository").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("filter.region", filter.Region),
		attribute.String("filter.type", string(filter.Type)),
		attribute.Float64("filter.min_rating", filter.MinRating),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Search"))

	query := `
        SELECT
            id::text,
            name,
            type,
            region,
            rating::float8,
            price_min::float8,
            price_max::float8,
            ST_Y(location::geometry) AS latitude,
            ST_X(location::geometry) AS longitude
        FROM accommodations
        WHERE rating >= $1`
	args := []any{filter.MinRating}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Region != "" {
		query += ` AND lower(region) = lower(` + next(filter.Region) + `)`
	}
	if filter.Type != "" && filter.Type != types.AccommodationAny {
		query += ` AND type = ` + next(string(filter.Type))
	}
	if b := filter.Budget; b != nil {
		if b.Max > 0 {
			query += ` AND price_min <= ` + next(b.Max)
		}
		if b.Min > 0 {
			query += ` AND (price_max = 0 OR price_max >= ` + next(b.Min) + `)`
		}
	}
	query += ` ORDER BY rating DESC, name`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit)
	}

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery(ctx, "accommodations_search", start, err)
		l.ErrorContext(ctx, "Failed to query accommodations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search accommodations: %w", err)
	}
	defer rows.Close()

	var out []types.AccommodationCandidate
	for rows.Next() {
		var a types.AccommodationCandidate
		var kind string
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&kind,
			&a.Region,
			&a.Rating,
			&a.PriceRange.Min,
			&a.PriceRange.Max,
			&a.Location.Latitude,
			&a.Location.Longitude,
		); err != nil {
			l.ErrorContext(ctx, "Failed to scan accommodation row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan accommodation row: %w", err)
		}
		a.Type = types.AccommodationType(kind)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery(ctx, "accommodations_search", start, err)
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating accommodation rows: %w", err)
	}
	metrics.RecordDBQuery(ctx, "accommodations_search", start, nil)

	span.SetAttributes(attribute.Int("results.count", len(out)))
	span.SetStatus(codes.Ok, "Accommodations found")
	l.DebugContext(ctx, "Accommodations found", slog.Int("count", len(out)))
	return out, nil
}
