package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// Scheduler packs ranked candidates into day windows, one greedy first-fit pass per day.
// It never optimises across days and never revisits a placed candidate.
type Scheduler struct {
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Schedule always returns an itinerary with exactly intent.Days day plans. An oracle
// failure or an unexpected panic stops scheduling, keeps the completed days and marks
// the result Partial.
func (s *Scheduler) Schedule(ctx context.Context, ranked []types.ScoredCandidate, intent types.TripIntent, oracle Oracle) types.Itinerary {
	ctx, span := otel.Tracer("Scheduler").Start(ctx, "Schedule", trace.WithAttributes(
		attribute.Int("intent.days", intent.Days),
		attribute.Int("candidates.count", len(ranked)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Schedule"))

	it := types.Itinerary{ID: uuid.New(), Days: make([]types.DayPlan, 0, max(intent.Days, 0))}
	consumed := make([]bool, len(ranked))

	for d := 0; d < intent.Days; d++ {
		day, err := s.scheduleDay(ctx, d, ranked, consumed, intent, oracle)
		if err != nil {
			it.Partial = true
			it.Warn(fmt.Sprintf("scheduling stopped on day %d: %v", d+1, err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "scheduling stopped early")
			l.WarnContext(ctx, "Scheduling stopped early, returning partial itinerary",
				slog.Int("day", d+1),
				slog.Any("error", err))
			break
		}
		it.Days = append(it.Days, day)
	}

	for len(it.Days) < intent.Days {
		d := len(it.Days)
		it.Days = append(it.Days, types.DayPlan{Day: d + 1, Date: intent.DayDate(d), Visits: []types.Visit{}})
	}

	visits := it.VisitCount()
	if visits == 0 && !it.Partial {
		it.Warn(types.ErrSchedulingInfeasible.Error())
		l.InfoContext(ctx, "No candidate fits any day", slog.Int("candidates", len(ranked)))
	}
	metrics.Get().VisitsScheduledTotal.Add(ctx, int64(visits))
	span.SetAttributes(attribute.Int("visits.count", visits), attribute.Bool("itinerary.partial", it.Partial))
	return it
}

// scheduleDay fills one day. consumed is only updated for a day that completes, so a
// failed day leaves the pool untouched.
func (s *Scheduler) scheduleDay(ctx context.Context, d int, ranked []types.ScoredCandidate, consumed []bool,
	intent types.TripIntent, oracle Oracle) (day types.DayPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic: %v", r)
		}
	}()

	day = types.DayPlan{Day: d + 1, Date: intent.DayDate(d), Visits: []types.Visit{}}
	if err := ctx.Err(); err != nil {
		return day, err
	}

	// pool maps matrix indexes back to ranked indexes, in score order.
	var pool []int
	var locations []types.Location
	for i, c := range ranked {
		if !consumed[i] {
			pool = append(pool, i)
			locations = append(locations, c.Location)
		}
	}
	if len(pool) == 0 {
		return day, nil
	}

	matrix, err := oracle.PairwiseDurations(ctx, locations)
	if err != nil {
		return day, fmt.Errorf("travel-time oracle failed: %w", err)
	}

	window := intent.TimeWindow
	current := window.Start
	at := -1
	placed := make([]bool, len(pool))
	date := intent.DayDate(d)

	for {
		next := -1
		var arrival types.ClockTime
		var travel int
		for k, ri := range pool {
			if placed[k] {
				continue
			}
			c := ranked[ri]
			t := 0
			if at >= 0 {
				dur, ok := matrix.Get(at, k)
				if !ok {
					s.logger.DebugContext(ctx, "No route between places, skipping for this transition",
						slog.String("from", ranked[pool[at]].ID),
						slog.String("to", c.ID))
					continue
				}
				t = ceilMinutes(dur)
			}
			arr, ok := fits(current.Add(t), c, window, date)
			if !ok {
				continue
			}
			next, arrival, travel = k, arr, t
			break
		}
		if next < 0 {
			break
		}

		c := ranked[pool[next]]
		departure := arrival.Add(c.StayMinutes)
		day.Visits = append(day.Visits, types.Visit{
			PlaceID:       c.ID,
			Name:          c.Name,
			Arrival:       arrival,
			Departure:     departure,
			TravelMinutes: travel,
		})
		placed[next] = true
		current = departure
		at = next
	}

	for k, ri := range pool {
		if placed[k] {
			consumed[ri] = true
		}
	}
	return day, nil
}

// fits returns the arrival time for c when a visit starting no earlier than earliest
// can finish inside the window and, for a known date, inside the opening hours.
func fits(earliest types.ClockTime, c types.ScoredCandidate, window types.TimeWindow, date time.Time) (types.ClockTime, bool) {
	if c.StayMinutes <= 0 {
		return 0, false
	}
	arrival := earliest
	closing := window.End
	if !date.IsZero() {
		hours, open := c.OpeningHours.On(date)
		if !open {
			return 0, false
		}
		arrival = max(arrival, hours.Open)
		closing = min(closing, hours.Close)
	}
	if arrival.Add(c.StayMinutes) > closing {
		return 0, false
	}
	return arrival, true
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
