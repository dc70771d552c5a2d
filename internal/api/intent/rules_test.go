package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

func TestParseRules_ChineseDurationDefaultsTheme(t *testing.T) {
	got := ParseRules("我想去宜蘭三天")

	assert.Equal(t, 3, got.Days)
	assert.Equal(t, []string{types.ThemeSightseeing}, got.Themes)
	assert.Equal(t, types.DefaultDayStart, got.TimeWindow.Start)
	assert.Equal(t, types.DefaultDayEnd, got.TimeWindow.End)
	assert.Equal(t, types.AccommodationHotel, got.AccommodationPref.Type)
	assert.Equal(t, "Yilan", got.Destination)
	require.NoError(t, got.Validate())
}

func TestParseRules_IsPure(t *testing.T) {
	inputs := []string{
		"我想去宜蘭三天",
		"Two days in Taipei, museums and night markets, hostel under $900, 10am to 6pm",
		"環保 生態 民宿 預算2000到3500 靠近景點 早上八點半到晚上7點",
		"",
		"   ",
	}
	for _, in := range inputs {
		first := ParseRules(in)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ParseRules(in), "input %q", in)
		}
		require.NoError(t, first.Validate(), "input %q", in)
	}
}

func TestParseRules_EmptyTextIsDefault(t *testing.T) {
	assert.Equal(t, DefaultIntent(), ParseRules(""))
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3天", 3, true},
		{"三天兩夜", 3, true},
		{"十二天", 12, true},
		{"兩日遊", 2, true},
		{"5 days please", 5, true},
		{"a 4-day trip", 4, true},
		{"three days", 3, true},
		{"Seven-day loop", 7, true},
		{"one week", 7, true},
		{"一個星期", 7, true},
		{"this weekend", 2, true},
		{"5月15日出發", 0, false},
		{"99 days", 0, false},
		{"no idea", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDays(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChineseNumber(t *testing.T) {
	for in, want := range map[string]int{"一": 1, "兩": 2, "十": 10, "十二": 12, "二十": 20, "二十一": 21} {
		got, ok := ChineseNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ChineseNumber("天")
	assert.False(t, ok)
}

func TestMatchThemes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"我想去宜蘭三天", nil},
		{"喜歡自然步道和美食", []string{types.ThemeNature, types.ThemeFood}},
		{"museums, temples and street food", []string{types.ThemeCulture, types.ThemeFood}},
		{"great trip", nil},
		{"night market and bars", []string{types.ThemeShopping, types.ThemeNightlife}},
		{"eco-friendly farms with the kids", []string{types.ThemeEco, types.ThemeFamily}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchThemes(tt.in))
		})
	}
}

func TestParseTimeWindow(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		start     types.ClockTime
		end       types.ClockTime
		wantFound bool
	}{
		{"chinese periods", "早上9點到下午5點", types.Clock(9, 0), types.Clock(17, 0), true},
		{"half hour", "早上八點半到晚上7點", types.Clock(8, 30), types.Clock(19, 0), true},
		{"am pm", "from 10am to 6:30pm", types.Clock(10, 0), types.Clock(18, 30), true},
		{"24h clock", "09:30-20:00", types.Clock(9, 30), types.Clock(20, 0), true},
		{"single start", "start at morning 10", types.Clock(10, 0), types.DefaultDayEnd, true},
		{"reversed is dropped", "evening 8 to morning 7", types.DefaultDayStart, types.DefaultDayEnd, false},
		{"nothing", "three days", types.DefaultDayStart, types.DefaultDayEnd, false},
		{"morning twelve is noon", "早上12點到晚上8點", types.Clock(12, 0), types.Clock(20, 0), true},
		{"twelve am is midnight", "from 12am to 6am", types.Clock(0, 0), types.Clock(6, 0), true},
		{"day count after period", "晚上三天", types.DefaultDayStart, types.DefaultDayEnd, false},
		{"day count in english", "evening 3 days in Yilan", types.DefaultDayStart, types.DefaultDayEnd, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, found := ParseTimeWindow(tt.in)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.start, w.Start)
			assert.Equal(t, tt.end, w.End)
		})
	}
}

func TestParseClockPhrases_DayCounts(t *testing.T) {
	assert.Empty(t, ParseClockPhrases("晚上三天"))
	assert.Empty(t, ParseClockPhrases("晚上 2日遊"))
	assert.Equal(t, []types.ClockTime{types.Clock(21, 0)}, ParseClockPhrases("晚上九點，三天"))

	intent := ParseRules("我想去宜蘭玩，晚上三天都想逛夜市")
	assert.Equal(t, 3, intent.Days)
	assert.Equal(t, types.DefaultDayStart, intent.TimeWindow.Start)
}

func TestParseAccommodationType(t *testing.T) {
	assert.Equal(t, types.AccommodationHostel, ParseAccommodationType("住青年旅館就好"))
	assert.Equal(t, types.AccommodationHostel, ParseAccommodationType("cheap hostels"))
	assert.Equal(t, types.AccommodationHomestay, ParseAccommodationType("想住民宿"))
	assert.Equal(t, types.AccommodationHomestay, ParseAccommodationType("a cosy B&B"))
	assert.Equal(t, types.AccommodationHotel, ParseAccommodationType("飯店"))
	assert.Equal(t, types.AccommodationHotel, ParseAccommodationType("anything"))
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in   string
		want *types.BudgetRange
	}{
		{"預算2000到3500", &types.BudgetRange{Min: 2000, Max: 3500}},
		{"budget 1,500 - 3,000", &types.BudgetRange{Min: 1500, Max: 3000}},
		{"3000-5000元", &types.BudgetRange{Min: 3000, Max: 5000}},
		{"$80 to $120", &types.BudgetRange{Min: 80, Max: 120}},
		{"under 900", &types.BudgetRange{Min: 0, Max: 900}},
		{"3000以內", &types.BudgetRange{Min: 0, Max: 3000}},
		{"大概2500元", &types.BudgetRange{Min: 0, Max: 2500}},
		{"09:00-18:00", nil},
		{"flexible", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseBudget(tt.in)
			assert.Equal(t, tt.want != nil, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequirementsAndLocation(t *testing.T) {
	assert.Equal(t, "eco-friendly, photography", ParseRequirements("環保行程，想拍照"))
	assert.Equal(t, "", ParseRequirements("nothing special"))
	assert.Equal(t, types.LocationPreferenceNearAttractions, ParseLocationPreference("住宿要靠近景點"))
	assert.Equal(t, types.LocationPreferenceNearAttractions, ParseLocationPreference("near attractions please"))
	assert.Equal(t, types.LocationPreferenceAny, ParseLocationPreference("whatever"))
}

func TestMatchDestination(t *testing.T) {
	assert.Equal(t, "Yilan", MatchDestination("我想去宜蘭三天"))
	assert.Equal(t, "Jiaoxi", MatchDestination("礁溪溫泉"))
	assert.Equal(t, "Taipei", MatchDestination("two days in taipei"))
	assert.Equal(t, "Lisbon", MatchDestination("a trip to Lisbon in April"))
	assert.Equal(t, "", MatchDestination("sometime in April"))
}

func TestParseSlots(t *testing.T) {
	slots := map[string]string{
		types.SlotDestination: "宜蘭",
		types.SlotDuration:    "3",
		types.SlotInterests:   "溫泉和美食",
		types.SlotBudget:      "3000",
		types.SlotTravelStyle: "relaxed",
		types.SlotGroupSize:   "2",
	}
	got := ParseSlots(slots)

	assert.Equal(t, 3, got.Days)
	assert.Equal(t, "Yilan", got.Destination)
	assert.Equal(t, []string{types.ThemeFood, types.ThemeRelaxation}, got.Themes)
	assert.Equal(t, &types.BudgetRange{Min: 0, Max: 3000}, got.AccommodationPref.BudgetRange)
	assert.Equal(t, types.Clock(10, 0), got.TimeWindow.Start)
	assert.Equal(t, types.Clock(17, 0), got.TimeWindow.End)
	assert.Equal(t, got, ParseSlots(slots))
}

func TestRenderSlots_StableOrder(t *testing.T) {
	slots := map[string]string{
		"zeta":                "z",
		types.SlotDuration:    "3天",
		types.SlotDestination: "宜蘭",
		"alpha":               "a",
		types.SlotBudget:      "",
	}
	want := "destination: 宜蘭\nduration: 3天\nalpha: a\nzeta: z\n"
	assert.Equal(t, want, RenderSlots(slots))
}
