package types

import (
	"math"
	"strings"
	"time"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two locations.
func DistanceKm(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid averages the given locations. It returns false for an empty slice.
func Centroid(locations []Location) (Location, bool) {
	if len(locations) == 0 {
		return Location{}, false
	}
	var c Location
	for _, l := range locations {
		c.Latitude += l.Latitude
		c.Longitude += l.Longitude
	}
	n := float64(len(locations))
	return Location{Latitude: c.Latitude / n, Longitude: c.Longitude / n}, true
}

type DayHours struct {
	Open  ClockTime `json:"open"`
	Close ClockTime `json:"close"`
}

// OpeningHours maps lower-case English weekday names ("monday") to the hours of that
// day. An empty map means always open; a weekday missing from a non-empty map means
// closed on that day.
type OpeningHours map[string]DayHours

// On returns the hours for the weekday of date, and false when the place is closed.
func (o OpeningHours) On(date time.Time) (DayHours, bool) {
	if len(o) == 0 {
		return DayHours{Open: 0, Close: MinutesPerDay}, true
	}
	h, ok := o[strings.ToLower(date.Weekday().String())]
	return h, ok
}

type PlaceCandidate struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Region       string       `json:"region,omitempty"`
	Categories   []string     `json:"categories"`
	Tags         []string     `json:"tags"`
	Rating       *float64     `json:"rating,omitempty"`
	StayMinutes  int          `json:"stay_minutes"`
	Location     Location     `json:"location"`
	OpeningHours OpeningHours `json:"opening_hours,omitempty"`
	EcoCertified bool         `json:"eco_certified"`
}

type Channel string

const (
	ChannelStructured Channel = "STRUCTURED"
	ChannelSemantic   Channel = "SEMANTIC"
)

type ScoredCandidate struct {
	PlaceCandidate
	Score         float64 `json:"score"`
	SourceChannel Channel `json:"source_channel"`
}

// PlaceFilter drives the structured retrieval channel.
type PlaceFilter struct {
	Region     string
	Center     *Location
	RadiusKm   float64
	Categories []string
	MinRating  *float64
	Limit      int
}
