package types

import (
	"fmt"
	"slices"
	"time"
)

// Theme vocabulary. ThemeSightseeing is the baseline used when nothing else matched.
const (
	ThemeSightseeing = "sightseeing"
	ThemeNature      = "nature"
	ThemeCulture     = "culture"
	ThemeFood        = "food"
	ThemeShopping    = "shopping"
	ThemeAdventure   = "adventure"
	ThemeRelaxation  = "relaxation"
	ThemePhotography = "photography"
	ThemeEco         = "eco"
	ThemeNightlife   = "nightlife"
	ThemeFamily      = "family"
)

// Themes lists the closed theme vocabulary in canonical order.
var Themes = []string{
	ThemeSightseeing, ThemeNature, ThemeCulture, ThemeFood, ThemeShopping, ThemeAdventure,
	ThemeRelaxation, ThemePhotography, ThemeEco, ThemeNightlife, ThemeFamily,
}

func IsKnownTheme(theme string) bool {
	return slices.Contains(Themes, theme)
}

type AccommodationType string

const (
	AccommodationAny      AccommodationType = "any"
	AccommodationHotel    AccommodationType = "hotel"
	AccommodationHomestay AccommodationType = "homestay"
	AccommodationHostel   AccommodationType = "hostel"
)

const (
	LocationPreferenceAny             = "any"
	LocationPreferenceNearAttractions = "near attractions"
)

var (
	DefaultDayStart = Clock(9, 0)
	DefaultDayEnd   = Clock(18, 0)
)

type TimeWindow struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Minutes returns the length of the window.
func (w TimeWindow) Minutes() int {
	return int(w.End - w.Start)
}

type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type AccommodationPref struct {
	Type               AccommodationType `json:"type"`
	BudgetRange        *BudgetRange      `json:"budget_range,omitempty"`
	LocationPreference string            `json:"location_preference"`
}

// TripIntent is the structured form of a user's trip request. It is built once per
// planning request and treated as immutable afterwards.
type TripIntent struct {
	Days                int               `json:"days"`
	Themes              []string          `json:"themes"`
	TimeWindow          TimeWindow        `json:"time_window"`
	AccommodationPref   AccommodationPref `json:"accommodation_pref"`
	SpecialRequirements string            `json:"special_requirements,omitempty"`
	Destination         string            `json:"destination,omitempty"`
	Center              *Location         `json:"center,omitempty"`
	RadiusKm            float64           `json:"radius_km,omitempty"`
	StartDate           time.Time         `json:"start_date,omitzero"`
}

// Validate reports the first structural problem with the intent as a *ValidationError.
func (t TripIntent) Validate() error {
	if t.Days < 1 {
		return &ValidationError{Field: "days", Reason: fmt.Sprintf("must be at least 1, got %d", t.Days)}
	}
	if t.TimeWindow.Start < 0 || t.TimeWindow.End > MinutesPerDay {
		return &ValidationError{Field: "time_window", Reason: "must lie within a single day"}
	}
	if t.TimeWindow.Start >= t.TimeWindow.End {
		return &ValidationError{Field: "time_window", Reason: fmt.Sprintf("start %s must be before end %s", t.TimeWindow.Start, t.TimeWindow.End)}
	}
	seen := make(map[string]struct{}, len(t.Themes))
	for _, theme := range t.Themes {
		if !IsKnownTheme(theme) {
			return &ValidationError{Field: "themes", Reason: fmt.Sprintf("unknown theme %q", theme)}
		}
		if _, dup := seen[theme]; dup {
			return &ValidationError{Field: "themes", Reason: fmt.Sprintf("duplicate theme %q", theme)}
		}
		seen[theme] = struct{}{}
	}
	switch t.AccommodationPref.Type {
	case "", AccommodationAny, AccommodationHotel, AccommodationHomestay, AccommodationHostel:
	default:
		return &ValidationError{Field: "accommodation_pref.type", Reason: fmt.Sprintf("unknown type %q", t.AccommodationPref.Type)}
	}
	if b := t.AccommodationPref.BudgetRange; b != nil {
		if b.Min < 0 || b.Max < 0 {
			return &ValidationError{Field: "accommodation_pref.budget_range", Reason: "must not be negative"}
		}
		if b.Max > 0 && b.Min > b.Max {
			return &ValidationError{Field: "accommodation_pref.budget_range", Reason: "min exceeds max"}
		}
	}
	if t.RadiusKm < 0 {
		return &ValidationError{Field: "radius_km", Reason: "must not be negative"}
	}
	return nil
}

// DayDate returns the calendar date of the zero-based day index.
func (t TripIntent) DayDate(index int) time.Time {
	if t.StartDate.IsZero() {
		return time.Time{}
	}
	return t.StartDate.AddDate(0, 0, index)
}
