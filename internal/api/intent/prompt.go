package intent

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

func getIntentPrompt(text string) string {
	return fmt.Sprintf(`
You convert a traveller's trip request into a structured trip intent.

REQUEST:
%s

Return ONLY a JSON object, no markdown and no commentary, with exactly these fields:
{
  "days": <integer number of trip days, at least 1>,
  "themes": [<zero or more of: %s>],
  "accommodation_type": "<one of: hotel, homestay, hostel, any>",
  "start_time": "<daily start as HH:MM in 24h time>",
  "end_time": "<daily end as HH:MM in 24h time>",
  "budget_range": {"min": <number>, "max": <number>} or null,
  "special_requirements": "<free text, empty if none>",
  "destination": "<region or city, empty if not mentioned>",
  "location_preference": "<near attractions or any>"
}

RULES:
    - Use 09:00 and 18:00 when the request does not mention daily times.
    - Use hotel when no accommodation type is mentioned.
    - Only use theme names from the list above.
    - Budget is per night in the traveller's currency.
`, strings.TrimSpace(text), strings.Join(types.Themes, ", "))
}
