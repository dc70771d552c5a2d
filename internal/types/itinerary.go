package types

import (
	"time"

	"github.com/google/uuid"
)

type Visit struct {
	PlaceID       string    `json:"place_id"`
	Name          string    `json:"name"`
	Arrival       ClockTime `json:"arrival"`
	Departure     ClockTime `json:"departure"`
	TravelMinutes int       `json:"travel_minutes"`
}

type DayPlan struct {
	Day           int                     `json:"day"`
	Date          time.Time               `json:"date,omitzero"`
	Visits        []Visit                 `json:"visits"`
	Accommodation *AccommodationCandidate `json:"accommodation,omitempty"`
}

// Locations returns the visit locations of the day in visit order, resolved through
// the given lookup.
func (d DayPlan) Locations(lookup map[string]Location) []Location {
	locs := make([]Location, 0, len(d.Visits))
	for _, v := range d.Visits {
		if l, ok := lookup[v.PlaceID]; ok {
			locs = append(locs, l)
		}
	}
	return locs
}

// Itinerary is the final planner output. Partial is set when scheduling stopped
// early; Warnings carries the reasons and any degraded lookups.
type Itinerary struct {
	ID       uuid.UUID `json:"id"`
	Days     []DayPlan `json:"days"`
	Partial  bool      `json:"partial"`
	Warnings []string  `json:"warnings,omitempty"`
}

func (it *Itinerary) Warn(msg string) {
	it.Warnings = append(it.Warnings, msg)
}

// VisitCount returns the number of visits across all days.
func (it *Itinerary) VisitCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Visits)
	}
	return n
}
