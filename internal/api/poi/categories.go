package poi

import (
	"slices"
	"strings"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// themeCategories maps each theme onto the catalog categories that serve it.
var themeCategories = map[string][]string{
	types.ThemeSightseeing: {"landmark", "viewpoint", "attraction", "park"},
	types.ThemeNature:      {"park", "trail", "beach", "mountain", "waterfall", "lake", "forest"},
	types.ThemeCulture:     {"museum", "temple", "historic_site", "gallery", "old_street"},
	types.ThemeFood:        {"restaurant", "cafe", "street_food", "night_market"},
	types.ThemeShopping:    {"market", "mall", "old_street", "night_market"},
	types.ThemeAdventure:   {"surfing", "rafting", "climbing", "diving", "trail"},
	types.ThemeRelaxation:  {"hot_spring", "spa", "beach", "park"},
	types.ThemePhotography: {"viewpoint", "landmark", "old_street"},
	types.ThemeEco:         {"farm", "nature_reserve", "wetland", "trail"},
	types.ThemeNightlife:   {"night_market", "bar"},
	types.ThemeFamily:      {"amusement_park", "zoo", "farm", "museum", "park"},
}

// CategoriesForThemes returns the catalog categories for themes, deduplicated, in the
// order they are first reached.
func CategoriesForThemes(themes []string) []string {
	var out []string
	for _, theme := range themes {
		for _, c := range themeCategories[theme] {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// QueryText is the natural-language query embedded for the semantic channel.
func QueryText(intent types.TripIntent) string {
	var b strings.Builder
	b.WriteString("Places for ")
	b.WriteString(strings.Join(intent.Themes, ", "))
	if intent.Destination != "" {
		b.WriteString(" in " + intent.Destination)
	}
	if intent.SpecialRequirements != "" {
		b.WriteString(". Requirements: " + intent.SpecialRequirements)
	}
	return b.String()
}

// MatchesTheme reports whether place belongs to theme through its categories or tags.
func MatchesTheme(place types.PlaceCandidate, theme string) bool {
	for _, c := range place.Categories {
		if slices.Contains(themeCategories[theme], strings.ToLower(c)) {
			return true
		}
	}
	for _, tag := range place.Tags {
		if strings.EqualFold(tag, theme) {
			return true
		}
	}
	return false
}
