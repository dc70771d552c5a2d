package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-trip-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the place catalog.
type Repository interface {
	// StructuredSearch filters places by region, distance, categories and rating.
	StructuredSearch(ctx context.Context, filter types.PlaceFilter) ([]types.PlaceCandidate, error)
	// VectorSearch returns the topK places closest to embedding by cosine distance,
	// optionally restricted to region.
	VectorSearch(ctx context.Context, embedding []float32, region string, topK int) ([]types.PlaceCandidate, error)
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

const placeColumns = `
            id::text,
            name,
            region,
            categories,
            tags,
            rating::float8,
            stay_minutes,
            ST_Y(location::geometry) AS latitude,
            ST_X(location::geometry) AS longitude,
            opening_hours,
            eco_certified`

func (r *RepositoryImpl) StructuredSearch(ctx context.Context, filter types.PlaceFilter) ([]types.PlaceCandidate, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "StructuredSearch", trace.WithAttributes(
		attribute.String("filter.region", filter.Region),
		attribute.StringSlice("filter.categories", filter.Categories),
		attribute.Float64("filter.radius_km", filter.RadiusKm),
		attribute.Int("filter.limit", filter.Limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "StructuredSearch"))

	query := `SELECT` + placeColumns + `
        FROM places
        WHERE TRUE`
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Region != "" {
		query += ` AND lower(region) = lower(` + next(filter.Region) + `)`
	}
	if filter.Center != nil && filter.RadiusKm > 0 {
		lon, lat := next(filter.Center.Longitude), next(filter.Center.Latitude)
		query += fmt.Sprintf(` AND ST_DWithin(location, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography, %s)`,
			lon, lat, next(filter.RadiusKm*1000))
	}
	if len(filter.Categories) > 0 {
		query += ` AND categories && ` + next(filter.Categories)
	}
	if filter.MinRating != nil {
		query += ` AND rating >= ` + next(*filter.MinRating)
	}
	query += ` ORDER BY rating DESC NULLS LAST, name`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit)
	}

	l.DebugContext(ctx, "Executing structured place search", slog.String("query", query), slog.Any("args", args))

	start := time.Now()
	places, err := r.queryPlaces(ctx, query, args...)
	metrics.RecordDBQuery(ctx, "places_structured_search", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Structured place search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search places: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Places found")
	l.InfoContext(ctx, "Structured place search finished", slog.Int("count", len(places)))
	return places, nil
}

func (r *RepositoryImpl) VectorSearch(ctx context.Context, embedding []float32, region string, topK int) ([]types.PlaceCandidate, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "VectorSearch", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(embedding)),
		attribute.String("filter.region", region),
		attribute.Int("limit", topK),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "VectorSearch"))

	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	args := []any{vectorLiteral(embedding), topK}
	query := `SELECT` + placeColumns + `
        FROM places
        WHERE embedding IS NOT NULL`
	if region != "" {
		args = append(args, region)
		query += ` AND lower(region) = lower($3)`
	}
	query += `
        ORDER BY embedding <=> $1::vector
        LIMIT $2`

	l.DebugContext(ctx, "Executing similarity search query",
		slog.Int("embedding_dim", len(embedding)),
		slog.Int("limit", topK))

	start := time.Now()
	places, err := r.queryPlaces(ctx, query, args...)
	metrics.RecordDBQuery(ctx, "places_vector_search", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Similarity search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search similar places: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Similar places found")
	l.InfoContext(ctx, "Similar places found", slog.Int("count", len(places)))
	return places, nil
}

func (r *RepositoryImpl) queryPlaces(ctx context.Context, query string, args ...any) ([]types.PlaceCandidate, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []types.PlaceCandidate
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}

func scanPlace(row pgx.Row) (types.PlaceCandidate, error) {
	var p types.PlaceCandidate
	var rating *float64
	var hours []byte
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Region,
		&p.Categories,
		&p.Tags,
		&rating,
		&p.StayMinutes,
		&p.Location.Latitude,
		&p.Location.Longitude,
		&hours,
		&p.EcoCertified,
	); err != nil {
		return p, fmt.Errorf("failed to scan place row: %w", err)
	}
	p.Rating = rating
	if len(hours) > 0 && string(hours) != "null" {
		if err := json.Unmarshal(hours, &p.OpeningHours); err != nil {
			return p, fmt.Errorf("invalid opening_hours for place %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// vectorLiteral renders an embedding in pgvector's text input format.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
