package itinerary

import (
	"context"
	"fmt"
	"time"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// Unreachable marks a pair the oracle has no route for.
const Unreachable time.Duration = -1

// Matrix holds the travel duration from location i to location j.
type Matrix [][]time.Duration

// Get returns the duration for a pair and false when it is unknown or unreachable.
func (m Matrix) Get(i, j int) (time.Duration, bool) {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		return 0, false
	}
	d := m[i][j]
	return d, d >= 0
}

// Oracle answers travel-time queries for a set of locations in one call.
type Oracle interface {
	PairwiseDurations(ctx context.Context, locations []types.Location) (Matrix, error)
}

// HaversineOracle estimates travel time from great-circle distance at a constant speed
// plus a fixed overhead per move.
type HaversineOracle struct {
	SpeedKmh float64
	Overhead time.Duration
}

func NewHaversineOracle(speedKmh float64, overhead time.Duration) *HaversineOracle {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	return &HaversineOracle{SpeedKmh: speedKmh, Overhead: overhead}
}

func (o *HaversineOracle) PairwiseDurations(ctx context.Context, locations []types.Location) (Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := make(Matrix, len(locations))
	for i, from := range locations {
		m[i] = make([]time.Duration, len(locations))
		for j, to := range locations {
			if i == j {
				continue
			}
			hours := types.DistanceKm(from, to) / o.SpeedKmh
			m[i][j] = time.Duration(hours*float64(time.Hour)) + o.Overhead
		}
	}
	return m, nil
}

// NewOracle builds the oracle named by cfg.Oracle: "haversine" (default) or "osrm".
func NewOracle(cfg config.SchedulerConfig) (Oracle, error) {
	switch cfg.Oracle {
	case "", "haversine":
		return NewHaversineOracle(cfg.SpeedKmh, time.Duration(cfg.OverheadMinutes)*time.Minute), nil
	case "osrm":
		if cfg.OSRMBaseURL == "" {
			return nil, fmt.Errorf("scheduler.osrmBaseURL is required for the osrm oracle")
		}
		return NewOSRMOracle(cfg.OSRMBaseURL, cfg.OSRMProfile, cfg.OracleTimeout, nil), nil
	default:
		return nil, fmt.Errorf("unknown travel-time oracle %q", cfg.Oracle)
	}
}
