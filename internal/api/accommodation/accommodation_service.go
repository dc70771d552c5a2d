package accommodation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const (
	defaultRatingFloor  = 3.0
	defaultNearRadiusKm = 10.0
	defaultTopN         = 3
	defaultSearchLimit  = 50
	defaultTimeout      = 3 * time.Second
)

var _ Service = (*ServiceImpl)(nil)

// Service picks lodging for the nights of an itinerary.
type Service interface {
	// Select returns the accommodation for one night, or nil when nothing qualifies.
	Select(ctx context.Context, pref types.AccommodationPref, region string, visits []types.Location) (*types.AccommodationCandidate, error)
	// AssignNights fills the accommodation of every day except the last. Days that
	// already carry one are left alone; failed lookups become warnings.
	AssignNights(ctx context.Context, intent types.TripIntent, itinerary *types.Itinerary, locations map[string]types.Location)
}

type ServiceImpl struct {
	repo   Repository
	picker Picker
	cfg    config.AccommodationConfig
	logger *slog.Logger
}

// NewService falls back to a RandomPicker seeded from cfg.Seed when picker is nil.
func NewService(repo Repository, picker Picker, cfg config.AccommodationConfig, logger *slog.Logger) *ServiceImpl {
	if cfg.RatingFloor <= 0 {
		cfg.RatingFloor = defaultRatingFloor
	}
	if cfg.NearRadiusKm <= 0 {
		cfg.NearRadiusKm = defaultNearRadiusKm
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if picker == nil {
		picker = NewRandomPicker(cfg.Seed)
	}
	return &ServiceImpl{
		repo:   repo,
		picker: picker,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *ServiceImpl) Select(ctx context.Context, pref types.AccommodationPref, region string, visits []types.Location) (*types.AccommodationCandidate, error) {
	ctx, span := otel.Tracer("AccommodationService").Start(ctx, "Select", trace.WithAttributes(
		attribute.String("pref.type", string(pref.Type)),
		attribute.String("pref.location", pref.LocationPreference),
		attribute.String("region", region),
	))
	defer span.End()

	filter := types.AccommodationFilter{
		Region:    region,
		Type:      pref.Type,
		Budget:    pref.BudgetRange,
		MinRating: s.cfg.RatingFloor,
		Limit:     s.cfg.SearchLimit,
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	found, err := s.repo.Search(searchCtx, filter)
	if err != nil {
		if ctx.Err() == nil && searchCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", types.ErrTimeout, err)
		}
		metrics.RecordExternalError(ctx, "accommodation")
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, types.NewExternalServiceError("accommodation", "search", err)
	}

	candidates := s.qualify(found, pref, visits)
	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Rating > candidates[j].Rating })
	top := min(s.cfg.TopN, len(candidates))
	chosen := candidates[s.picker.Intn(top)]
	span.SetAttributes(attribute.String("chosen.id", chosen.ID))
	return &chosen, nil
}

// qualify re-applies every constraint so results hold for any catalog implementation.
func (s *ServiceImpl) qualify(found []types.AccommodationCandidate, pref types.AccommodationPref, visits []types.Location) []types.AccommodationCandidate {
	centroid, hasCentroid := types.Centroid(visits)
	near := pref.LocationPreference == types.LocationPreferenceNearAttractions && hasCentroid

	out := make([]types.AccommodationCandidate, 0, len(found))
	for _, a := range found {
		if pref.Type != "" && pref.Type != types.AccommodationAny && a.Type != pref.Type {
			continue
		}
		if pref.BudgetRange != nil && !a.PriceRange.Overlaps(*pref.BudgetRange) {
			continue
		}
		if a.Rating < s.cfg.RatingFloor {
			continue
		}
		if near && types.DistanceKm(centroid, a.Location) > s.cfg.NearRadiusKm {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *ServiceImpl) AssignNights(ctx context.Context, intent types.TripIntent, itinerary *types.Itinerary, locations map[string]types.Location) {
	l := s.logger.With(slog.String("method", "AssignNights"))

	for i := 0; i < len(itinerary.Days)-1; i++ {
		day := &itinerary.Days[i]
		if day.Accommodation != nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		chosen, err := s.Select(ctx, intent.AccommodationPref, intent.Destination, day.Locations(locations))
		if err != nil {
			l.WarnContext(ctx, "Accommodation lookup failed, leaving night unassigned",
				slog.Int("day", day.Day),
				slog.Any("error", err))
			itinerary.Warn(fmt.Sprintf("accommodation lookup failed for day %d: %v", day.Day, err))
			continue
		}
		if chosen == nil {
			itinerary.Warn(fmt.Sprintf("no accommodation matched the preferences for day %d", day.Day))
			continue
		}
		day.Accommodation = chosen
	}
}
