package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

func TestExtractSlotsByRules(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		current   string
		want      map[string]string
	}{
		{
			name:      "destination and duration in one sentence",
			utterance: "我想去宜蘭三天",
			current:   types.SlotDestination,
			want: map[string]string{
				types.SlotDestination: "Yilan",
				types.SlotDuration:    "3 days",
			},
		},
		{
			name:      "unknown destination taken verbatim when asked",
			utterance: "Lisboa",
			current:   types.SlotDestination,
			want:      map[string]string{types.SlotDestination: "Lisboa"},
		},
		{
			name:      "bare number answers duration",
			utterance: "4",
			current:   types.SlotDuration,
			want:      map[string]string{types.SlotDuration: "4 days"},
		},
		{
			name:      "chinese bare number answers duration",
			utterance: "五",
			current:   types.SlotDuration,
			want:      map[string]string{types.SlotDuration: "5 days"},
		},
		{
			name:      "bare number answers group size",
			utterance: "3",
			current:   types.SlotGroupSize,
			want:      map[string]string{types.SlotGroupSize: "3"},
		},
		{
			name:      "bare number is ignored for destination",
			utterance: "3",
			current:   types.SlotDestination,
			want:      map[string]string{},
		},
		{
			name:      "interests keywords",
			utterance: "hiking and night markets",
			current:   types.SlotInterests,
			want: map[string]string{
				types.SlotInterests: "nature, shopping, nightlife",
			},
		},
		{
			name:      "no preference defaults interests",
			utterance: "都可以",
			current:   types.SlotInterests,
			want:      map[string]string{types.SlotInterests: types.ThemeSightseeing},
		},
		{
			name:      "budget range",
			utterance: "預算2000到3500",
			current:   types.SlotBudget,
			want:      map[string]string{types.SlotBudget: "2000-3500"},
		},
		{
			name:      "bare number answers budget",
			utterance: "3000",
			current:   types.SlotBudget,
			want:      map[string]string{types.SlotBudget: "up to 3000"},
		},
		{
			name:      "no means flexible budget",
			utterance: "No.",
			current:   types.SlotBudget,
			want:      map[string]string{types.SlotBudget: "flexible"},
		},
		{
			name:      "yes to relaxed pace",
			utterance: "yes",
			current:   types.SlotTravelStyle,
			want:      map[string]string{types.SlotTravelStyle: "relaxed"},
		},
		{
			name:      "no to relaxed pace",
			utterance: "nope",
			current:   types.SlotTravelStyle,
			want:      map[string]string{types.SlotTravelStyle: "packed"},
		},
		{
			name:      "yes to travelling alone",
			utterance: "是",
			current:   types.SlotGroupSize,
			want:      map[string]string{types.SlotGroupSize: "1"},
		},
		{
			name:      "explicit group size outside its turn",
			utterance: "我們兩個人",
			current:   types.SlotBudget,
			want:      map[string]string{types.SlotGroupSize: "2"},
		},
		{
			name:      "yes does not answer destination",
			utterance: "yes",
			current:   types.SlotDestination,
			want:      map[string]string{},
		},
		{
			name:      "empty utterance",
			utterance: "   ",
			current:   types.SlotDestination,
			want:      map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSlotsByRules(tt.utterance, tt.current))
		})
	}
}

func TestNextQuestion_ReferencesCollectedValues(t *testing.T) {
	collected := map[string]string{
		types.SlotDestination: "Yilan",
		types.SlotDuration:    "3 days",
	}
	assert.Contains(t, nextQuestion(types.SlotDuration, collected), "Yilan")
	assert.Contains(t, nextQuestion(types.SlotInterests, collected), "3 days in Yilan")
	assert.Equal(t, "Where would you like to go?", nextQuestion(types.SlotDestination, nil))
	assert.Equal(t, "Could you tell me your travel date?", nextQuestion("travel_date", nil))
}
