package types

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Overlaps reports whether the nightly price range intersects the requested budget.
// An unbounded budget maximum (0) only constrains the lower end.
func (p PriceRange) Overlaps(b BudgetRange) bool {
	if b.Max > 0 && p.Min > b.Max {
		return false
	}
	return p.Max == 0 || p.Max >= b.Min
}

type AccommodationCandidate struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       AccommodationType `json:"type"`
	Rating     float64           `json:"rating"`
	PriceRange PriceRange        `json:"price_range"`
	Location   Location          `json:"location"`
	Region     string            `json:"region,omitempty"`
}

type AccommodationFilter struct {
	Region    string
	Type      AccommodationType
	Budget    *BudgetRange
	MinRating float64
	Limit     int
}
