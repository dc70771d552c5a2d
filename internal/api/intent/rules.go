package intent

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// MaxTripDays bounds day counts read from free text.
const MaxTripDays = 30

// KeywordSet matches CJK keywords by substring and Latin keywords on word boundaries,
// with an optional plural s. Underscores count as spaces, so tags like street_food
// match the keyword food.
type KeywordSet struct {
	cjk   []string
	latin *regexp.Regexp
}

// NewKeywordSet sorts keywords into the CJK and Latin matchers.
func NewKeywordSet(keywords ...string) KeywordSet {
	var ks KeywordSet
	var latin []string
	for _, kw := range keywords {
		if isASCII(kw) {
			latin = append(latin, regexp.QuoteMeta(strings.ReplaceAll(strings.ToLower(kw), "_", " ")))
			continue
		}
		ks.cjk = append(ks.cjk, kw)
	}
	if len(latin) > 0 {
		ks.latin = regexp.MustCompile(`(?i)\b(?:` + strings.Join(latin, "|") + `)s?\b`)
	}
	return ks
}

func (k KeywordSet) Match(text string) bool {
	for _, kw := range k.cjk {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return k.latin != nil && k.latin.MatchString(strings.ReplaceAll(text, "_", " "))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

var themeKeywords = map[string]KeywordSet{
	types.ThemeSightseeing: NewKeywordSet("景點", "觀光", "名勝", "sightseeing", "landmark", "attraction"),
	types.ThemeNature:      NewKeywordSet("自然", "登山", "爬山", "海邊", "海灘", "森林", "步道", "瀑布", "湖", "nature", "hiking", "hike", "mountain", "beach", "forest", "waterfall", "lake", "trail"),
	types.ThemeCulture:     NewKeywordSet("文化", "歷史", "古蹟", "廟", "寺", "博物館", "藝術", "老街", "culture", "cultural", "history", "historic", "museum", "temple", "heritage", "art"),
	types.ThemeFood:        NewKeywordSet("美食", "小吃", "餐廳", "吃", "food", "foodie", "eat", "cuisine", "restaurant", "street food"),
	types.ThemeShopping:    NewKeywordSet("購物", "逛街", "商場", "shopping", "shop", "mall", "market"),
	types.ThemeAdventure:   NewKeywordSet("冒險", "刺激", "衝浪", "泛舟", "攀岩", "潛水", "adventure", "surfing", "surf", "rafting", "climbing", "diving"),
	types.ThemeRelaxation:  NewKeywordSet("放鬆", "悠閒", "溫泉", "度假", "relax", "relaxing", "relaxation", "spa", "hot spring", "leisure"),
	types.ThemePhotography: NewKeywordSet("拍照", "攝影", "打卡", "photo", "photography", "photogenic", "instagram"),
	types.ThemeEco:         NewKeywordSet("生態", "環保", "永續", "綠色", "eco", "ecological", "sustainable", "sustainability", "green"),
	types.ThemeNightlife:   NewKeywordSet("夜市", "夜生活", "酒吧", "nightlife", "bar", "night market", "club"),
	types.ThemeFamily:      NewKeywordSet("親子", "家庭", "小孩", "兒童", "family", "kid", "children", "child"),
}

// MatchThemes returns every theme whose keywords occur in text, in vocabulary order.
func MatchThemes(text string) []string {
	var themes []string
	for _, theme := range types.Themes {
		if themeKeywords[theme].Match(text) {
			themes = append(themes, theme)
		}
	}
	return themes
}

var (
	digitDaysRe   = regexp.MustCompile(`(?i)(^|[^月\d])(\d{1,2})\s*(?:天|日|-?\s*days?\b)`)
	chineseDaysRe = regexp.MustCompile(`([一二兩两三四五六七八九十]{1,3})\s*(?:天|日)`)
	englishDaysRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)[\s-]+days?\b`)
	weekRe        = regexp.MustCompile(`(?i)\b(?:a|one)\s+week\b|一(?:個)?(?:星期|週|周)`)
	weekendRe     = regexp.MustCompile(`(?i)\bweekend\b|週末|周末`)
)

var englishNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var chineseDigits = map[rune]int{
	'一': 1, '二': 2, '兩': 2, '两': 2, '三': 3, '四': 4, '五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// ChineseNumber converts numerals up to 99 such as 三, 十二 or 二十.
func ChineseNumber(s string) (int, bool) {
	total, current := 0, 0
	for _, r := range s {
		if r == '十' {
			if current == 0 {
				current = 1
			}
			total += current * 10
			current = 0
			continue
		}
		d, ok := chineseDigits[r]
		if !ok {
			return 0, false
		}
		current = d
	}
	n := total + current
	return n, n > 0
}

// ParseDays reads a trip length such as "3天", "三天", "three days" or "a week".
func ParseDays(text string) (int, bool) {
	valid := func(n int) (int, bool) {
		if n < 1 || n > MaxTripDays {
			return 0, false
		}
		return n, true
	}
	if m := digitDaysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[2])
		if d, ok := valid(n); ok {
			return d, true
		}
	}
	if m := chineseDaysRe.FindStringSubmatch(text); m != nil {
		if n, ok := ChineseNumber(m[1]); ok {
			if d, ok := valid(n); ok {
				return d, true
			}
		}
	}
	if m := englishDaysRe.FindStringSubmatch(text); m != nil {
		return englishNumbers[strings.ToLower(m[1])], true
	}
	if weekRe.MatchString(text) {
		return 7, true
	}
	if weekendRe.MatchString(text) {
		return 2, true
	}
	return 0, false
}

var (
	periodClockRe = regexp.MustCompile(`(?i)(早上|上午|中午|下午|晚上|morning|noon|afternoon|evening)\s*(?:at\s+)?(\d{1,2}|[一二兩两三四五六七八九十]{1,3})(?:\s*[:：點点時]\s*(半|\d{2})?)?`)
	meridiemRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clock24Re     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

type clockMatch struct {
	start, end int
	value      types.ClockTime
}

// periodHour converts a 12-hour reading to 24 hours. Morning 12 is noon, 12am is midnight.
func periodHour(period string, hour int) int {
	switch strings.ToLower(period) {
	case "中午", "noon":
		if hour < 6 {
			return hour + 12
		}
	case "下午", "afternoon", "晚上", "evening", "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// countsDays reports whether rest starts with a day unit, as in 晚上三天 where the
// numeral is a day count rather than a clock hour.
func countsDays(rest string) bool {
	rest = strings.ToLower(strings.TrimLeft(rest, " "))
	return strings.HasPrefix(rest, "天") || strings.HasPrefix(rest, "日") || strings.HasPrefix(rest, "day")
}

func parseHour(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return ChineseNumber(s)
}

// ParseClockPhrases returns the clock times mentioned in text in order of appearance.
func ParseClockPhrases(text string) []types.ClockTime {
	var found []clockMatch
	overlaps := func(s, e int) bool {
		for _, m := range found {
			if s < m.end && m.start < e {
				return true
			}
		}
		return false
	}
	add := func(s, e, hour, minute int) {
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 || overlaps(s, e) {
			return
		}
		found = append(found, clockMatch{start: s, end: e, value: types.Clock(hour, minute)})
	}

	for _, idx := range periodClockRe.FindAllStringSubmatchIndex(text, -1) {
		hour, ok := parseHour(text[idx[4]:idx[5]])
		if !ok || (idx[1] == idx[5] && countsDays(text[idx[1]:])) {
			continue
		}
		minute := 0
		if idx[6] >= 0 {
			if m := text[idx[6]:idx[7]]; m == "半" {
				minute = 30
			} else {
				minute, _ = strconv.Atoi(m)
			}
		}
		add(idx[0], idx[1], periodHour(text[idx[2]:idx[3]], hour), minute)
	}
	for _, idx := range meridiemRe.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		minute := 0
		if idx[4] >= 0 {
			minute, _ = strconv.Atoi(text[idx[4]:idx[5]])
		}
		if hour < 1 || hour > 12 {
			continue
		}
		add(idx[0], idx[1], periodHour(text[idx[6]:idx[7]], hour), minute)
	}
	for _, idx := range clock24Re.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		minute, _ := strconv.Atoi(text[idx[4]:idx[5]])
		add(idx[0], idx[1], hour, minute)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	out := make([]types.ClockTime, len(found))
	for i, m := range found {
		out[i] = m.value
	}
	return out
}

// ParseTimeWindow derives the daily window. Defaults are 09:00 and 18:00 and a parsed
// pair is only kept when start < end.
func ParseTimeWindow(text string) (types.TimeWindow, bool) {
	window := types.TimeWindow{Start: types.DefaultDayStart, End: types.DefaultDayEnd}
	times := ParseClockPhrases(text)
	switch {
	case len(times) >= 2:
		if times[0] < times[1] {
			return types.TimeWindow{Start: times[0], End: times[1]}, true
		}
	case len(times) == 1:
		if times[0] < types.DefaultDayEnd {
			return types.TimeWindow{Start: times[0], End: types.DefaultDayEnd}, true
		}
	}
	return window, false
}

var accommodationKeywords = []struct {
	kind     types.AccommodationType
	keywords KeywordSet
}{
	{types.AccommodationHostel, NewKeywordSet("青年旅館", "青旅", "背包客", "hostel", "backpacker")},
	{types.AccommodationHomestay, NewKeywordSet("民宿", "homestay", "b&b", "bnb", "guesthouse", "guest house")},
	{types.AccommodationHotel, NewKeywordSet("飯店", "酒店", "旅館", "hotel", "resort")},
}

// ParseAccommodationType checks hostel, then homestay, then hotel. The default is hotel.
func ParseAccommodationType(text string) types.AccommodationType {
	for _, a := range accommodationKeywords {
		if a.keywords.Match(text) {
			return a.kind
		}
	}
	return types.AccommodationHotel
}

var (
	budgetRangeKeywordRe  = regexp.MustCompile(`(?i)(?:預算|budget)[^\d]{0,12}(\d[\d,]*)\s*(?:-|~|～|到|至|to)\s*(\d[\d,]*)`)
	budgetRangeCurrencyRe = regexp.MustCompile(`(?i)\$?(\d[\d,]*)\s*(?:-|~|～|到|至|to)\s*\$?(\d[\d,]*)\s*(?:元|塊|nt\$?|twd|dollars?|usd|eur)`)
	budgetRangeDollarRe   = regexp.MustCompile(`\$(\d[\d,]*)\s*(?:-|~|to)\s*\$?(\d[\d,]*)`)
	budgetMaxRe           = regexp.MustCompile(`(?i)(?:預算|budget|under|below|不超過|以內|最多|max(?:imum)?)[^\d]{0,12}(\d[\d,]*)|(\d[\d,]*)\s*(?:元|塊)?\s*(?:以內|以下)`)
	budgetAmountRe        = regexp.MustCompile(`(?i)(?:\$|nt\$)\s*(\d[\d,]*)|(\d[\d,]*)\s*(?:元|塊|twd|dollars?|usd|eur)`)
)

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}

// ParseBudget reads a nightly budget range or an upper bound from text.
func ParseBudget(text string) (*types.BudgetRange, bool) {
	for _, re := range []*regexp.Regexp{budgetRangeKeywordRe, budgetRangeCurrencyRe, budgetRangeDollarRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			lo, ok1 := parseAmount(m[1])
			hi, ok2 := parseAmount(m[2])
			if ok1 && ok2 && lo <= hi {
				return &types.BudgetRange{Min: lo, Max: hi}, true
			}
		}
	}
	for _, re := range []*regexp.Regexp{budgetMaxRe, budgetAmountRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if hi, ok := parseAmount(raw); ok && hi > 0 {
				return &types.BudgetRange{Min: 0, Max: hi}, true
			}
		}
	}
	return nil, false
}

var nearAttractionKeywords = NewKeywordSet("靠近景點", "景點附近", "離景點近", "市中心", "near attractions", "near the attractions", "close to attractions", "near the sights", "central", "city center", "city centre")

// ParseLocationPreference returns "near attractions" when the text asks for it.
func ParseLocationPreference(text string) string {
	if nearAttractionKeywords.Match(text) {
		return types.LocationPreferenceNearAttractions
	}
	return types.LocationPreferenceAny
}

var requirementKeywords = []struct {
	label    string
	keywords KeywordSet
}{
	{"eco-friendly", NewKeywordSet("環保", "生態", "永續", "綠色", "低碳", "eco", "eco-friendly", "sustainable", "sustainability", "green")},
	{"photography", NewKeywordSet("拍照", "攝影", "打卡", "photo", "photography", "photogenic", "instagram")},
	{"cultural depth", NewKeywordSet("深度", "在地文化", "歷史", "古蹟", "in-depth", "authentic", "cultural", "history", "heritage")},
	{"family friendly", NewKeywordSet("親子", "小孩", "兒童", "family", "kid", "children")},
	{"wheelchair accessible", NewKeywordSet("無障礙", "輪椅", "wheelchair", "accessible", "accessibility")},
	{"vegetarian", NewKeywordSet("素食", "吃素", "vegetarian", "vegan")},
	{"pet friendly", NewKeywordSet("寵物", "pet", "dog")},
}

// ParseRequirements lists the special requirements mentioned in text in a fixed order.
func ParseRequirements(text string) string {
	var labels []string
	for _, r := range requirementKeywords {
		if r.keywords.Match(text) {
			labels = append(labels, r.label)
		}
	}
	return strings.Join(labels, ", ")
}

var destinations = []struct {
	canonical string
	aliases   KeywordSet
}{
	{"Yilan", NewKeywordSet("宜蘭", "宜兰", "yilan", "ilan")},
	{"Jiaoxi", NewKeywordSet("礁溪", "jiaoxi")},
	{"Luodong", NewKeywordSet("羅東", "luodong")},
	{"Taipei", NewKeywordSet("台北", "臺北", "taipei")},
	{"New Taipei", NewKeywordSet("新北", "new taipei")},
	{"Jiufen", NewKeywordSet("九份", "jiufen")},
	{"Keelung", NewKeywordSet("基隆", "keelung")},
	{"Hualien", NewKeywordSet("花蓮", "hualien")},
	{"Taitung", NewKeywordSet("台東", "臺東", "taitung")},
	{"Taichung", NewKeywordSet("台中", "臺中", "taichung")},
	{"Nantou", NewKeywordSet("南投", "nantou")},
	{"Sun Moon Lake", NewKeywordSet("日月潭", "sun moon lake")},
	{"Alishan", NewKeywordSet("阿里山", "alishan")},
	{"Tainan", NewKeywordSet("台南", "臺南", "tainan")},
	{"Kaohsiung", NewKeywordSet("高雄", "kaohsiung")},
	{"Kenting", NewKeywordSet("墾丁", "kenting")},
}

var travelToRe = regexp.MustCompile(`\b(?:to|visit|visiting|in|around)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)`)

// notPlaces are capitalised words that commonly follow "in" or "to" without naming a place.
var notPlaces = map[string]bool{
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
	"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
	"Saturday": true, "Sunday": true, "Spring": true, "Summer": true, "Autumn": true, "Winter": true,
	"Go": true, "See": true, "Do": true, "Eat": true, "Stay": true, "Travel": true,
}

// MatchDestination returns the canonical region name mentioned in text, or "".
// Specific towns are listed before the counties containing them.
func MatchDestination(text string) string {
	best, bestPos := "", -1
	lower := strings.ToLower(text)
	for _, d := range destinations {
		pos := firstIndex(lower, d.aliases)
		if pos >= 0 && (bestPos < 0 || pos < bestPos) {
			best, bestPos = d.canonical, pos
		}
	}
	if best != "" {
		return best
	}
	for _, m := range travelToRe.FindAllStringSubmatch(text, -1) {
		if first, _, _ := strings.Cut(m[1], " "); !notPlaces[first] {
			return m[1]
		}
	}
	return ""
}

func firstIndex(lower string, ks KeywordSet) int {
	pos := -1
	for _, kw := range ks.cjk {
		if i := strings.Index(lower, kw); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	if ks.latin != nil {
		if loc := ks.latin.FindStringIndex(lower); loc != nil && (pos < 0 || loc[0] < pos) {
			pos = loc[0]
		}
	}
	return pos
}

// DefaultIntent is what the rule parser returns for text it understands nothing of.
func DefaultIntent() types.TripIntent {
	return types.TripIntent{
		Days:       1,
		Themes:     []string{types.ThemeSightseeing},
		TimeWindow: types.TimeWindow{Start: types.DefaultDayStart, End: types.DefaultDayEnd},
		AccommodationPref: types.AccommodationPref{
			Type:               types.AccommodationHotel,
			LocationPreference: types.LocationPreferenceAny,
		},
	}
}

// ParseRules is the deterministic intent parser used when the LLM path fails. It is a
// pure function of text.
func ParseRules(text string) types.TripIntent {
	intent := DefaultIntent()
	if days, ok := ParseDays(text); ok {
		intent.Days = days
	}
	if themes := MatchThemes(text); len(themes) > 0 {
		intent.Themes = themes
	}
	intent.TimeWindow, _ = ParseTimeWindow(text)
	intent.AccommodationPref.Type = ParseAccommodationType(text)
	if budget, ok := ParseBudget(text); ok {
		intent.AccommodationPref.BudgetRange = budget
	}
	intent.AccommodationPref.LocationPreference = ParseLocationPreference(text)
	intent.SpecialRequirements = ParseRequirements(text)
	intent.Destination = MatchDestination(text)
	return intent
}

var paceWindows = map[string]types.TimeWindow{
	"relaxed": {Start: types.Clock(10, 0), End: types.Clock(17, 0)},
	"packed":  {Start: types.Clock(8, 0), End: types.Clock(20, 0)},
}

// ParseSlots parses collected conversation slots. Slot-specific values take precedence
// over what the combined text yields.
func ParseSlots(slots map[string]string) types.TripIntent {
	text := RenderSlots(slots)
	intent := ParseRules(text)
	if days, ok := ParseDays(slots[types.SlotDuration]); ok {
		intent.Days = days
	} else if n, err := strconv.Atoi(strings.TrimSpace(slots[types.SlotDuration])); err == nil && n >= 1 && n <= MaxTripDays {
		intent.Days = n
	}
	if dest := strings.TrimSpace(slots[types.SlotDestination]); dest != "" {
		if canonical := MatchDestination(dest); canonical != "" {
			intent.Destination = canonical
		} else {
			intent.Destination = dest
		}
	}
	if themes := MatchThemes(slots[types.SlotInterests]); len(themes) > 0 {
		intent.Themes = themes
	}
	if _, explicit := ParseTimeWindow(text); !explicit {
		if w, ok := paceWindows[strings.ToLower(strings.TrimSpace(slots[types.SlotTravelStyle]))]; ok {
			intent.TimeWindow = w
		}
	}
	return intent
}

// RenderSlots writes slots as "name: value" lines, required slots first in their
// canonical order and any others sorted by name.
func RenderSlots(slots map[string]string) string {
	var b strings.Builder
	for _, slot := range types.DefaultRequiredSlots {
		if v := slots[slot]; v != "" {
			b.WriteString(slot + ": " + v + "\n")
		}
	}
	var extra []string
	for slot := range slots {
		if !slices.Contains(types.DefaultRequiredSlots, slot) && slots[slot] != "" {
			extra = append(extra, slot)
		}
	}
	sort.Strings(extra)
	for _, slot := range extra {
		b.WriteString(slot + ": " + slots[slot] + "\n")
	}
	return b.String()
}
