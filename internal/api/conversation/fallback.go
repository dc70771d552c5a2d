package conversation

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const maxRawSlotRunes = 40

var (
	yesWords = []string{"是", "是的", "對", "好", "好的", "嗯", "沒錯", "yes", "yeah", "yep", "y", "sure", "ok", "okay", "of course"}
	noWords  = []string{"不", "不是", "否", "沒有", "不要", "no", "nope", "nah", "n", "not really"}

	noPreferenceWords = []string{"都可以", "隨便", "沒有特別", "沒意見", "no preference", "anything", "whatever", "any", "don't mind", "dont mind"}

	numberOnlyRe  = regexp.MustCompile(`^\d{1,6}$`)
	cjkNumberRe   = regexp.MustCompile(`^[一二兩两三四五六七八九十]{1,3}$`)
	groupDigitRe  = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:個人|人|位|people|persons?|adults|pax|travell?ers|of us)`)
	groupCJKRe    = regexp.MustCompile(`([一二兩两三四五六七八九十]{1,3})\s*(?:個人|人|位)`)
	soloRe        = regexp.MustCompile(`(?i)一個人|自己|獨自|\b(?:alone|solo|myself|just me)\b`)
	coupleRe      = regexp.MustCompile(`(?i)情侶|夫妻|老公|老婆|男朋友|女朋友|\b(?:couple|my wife|my husband|my partner|girlfriend|boyfriend)\b`)
	budgetLowRe   = regexp.MustCompile(`(?i)便宜|省錢|平價|小資|\b(?:cheap|low|affordable|budget-friendly|backpacker)\b`)
	budgetHighRe  = regexp.MustCompile(`(?i)豪華|高級|奢華|\b(?:luxury|luxurious|high-end|splurge)\b`)
	budgetFlexRe  = regexp.MustCompile(`(?i)不限|沒預算|\b(?:flexible|no limit|unlimited)\b`)
	budgetMidRe   = regexp.MustCompile(`(?i)中等|普通|\b(?:moderate|mid-range|medium|average)\b`)
	relaxedRe     = regexp.MustCompile(`(?i)輕鬆|悠閒|慢活|放鬆|慢慢|\b(?:relaxed|relaxing|slow|leisurely|chill|easy)\b`)
	packedRe      = regexp.MustCompile(`(?i)緊湊|充實|多跑|趕|\b(?:packed|busy|intense|fast|full)\b`)
	balancedRe    = regexp.MustCompile(`(?i)適中|剛好|\b(?:balanced|moderate)\b`)
	punctuationRe = regexp.MustCompile(`[\s,.!?;:，。！？；：~～]+`)
)

func normalise(utterance string) string {
	return strings.TrimSpace(punctuationRe.ReplaceAllString(strings.ToLower(utterance), " "))
}

func isOneOf(norm string, words []string) bool {
	return slices.Contains(words, norm)
}

func numberOnly(norm string) (int, bool) {
	if numberOnlyRe.MatchString(norm) {
		n, err := strconv.Atoi(norm)
		return n, err == nil
	}
	if cjkNumberRe.MatchString(norm) {
		return intent.ChineseNumber(norm)
	}
	return 0, false
}

func formatBudget(b *types.BudgetRange) string {
	if b.Min <= 0 {
		return fmt.Sprintf("up to %.0f", b.Max)
	}
	return fmt.Sprintf("%.0f-%.0f", b.Min, b.Max)
}

// extractSlotsByRules is the deterministic slot extractor. Explicit patterns may fill any
// slot; yes/no, bare numbers and free text are only read as answers to current.
func extractSlotsByRules(utterance, current string) map[string]string {
	slots := map[string]string{}
	text := strings.TrimSpace(utterance)
	if text == "" {
		return slots
	}
	norm := normalise(text)
	yes, no := isOneOf(norm, yesWords), isOneOf(norm, noWords)
	n, isNumber := numberOnly(norm)

	if dest := intent.MatchDestination(text); dest != "" {
		slots[types.SlotDestination] = dest
	}
	if days, ok := intent.ParseDays(text); ok {
		slots[types.SlotDuration] = fmt.Sprintf("%d days", days)
	}
	if themes := intent.MatchThemes(text); len(themes) > 0 {
		slots[types.SlotInterests] = strings.Join(themes, ", ")
	}
	if budget, ok := intent.ParseBudget(text); ok {
		slots[types.SlotBudget] = formatBudget(budget)
	} else {
		switch {
		case budgetFlexRe.MatchString(text):
			slots[types.SlotBudget] = "flexible"
		case budgetHighRe.MatchString(text):
			slots[types.SlotBudget] = "luxury"
		case budgetLowRe.MatchString(text):
			slots[types.SlotBudget] = "low"
		}
	}
	switch {
	case relaxedRe.MatchString(text):
		slots[types.SlotTravelStyle] = "relaxed"
	case packedRe.MatchString(text):
		slots[types.SlotTravelStyle] = "packed"
	case current == types.SlotTravelStyle && balancedRe.MatchString(text):
		slots[types.SlotTravelStyle] = "balanced"
	}
	if m := groupDigitRe.FindStringSubmatch(text); m != nil {
		slots[types.SlotGroupSize] = m[1]
	} else if m := groupCJKRe.FindStringSubmatch(text); m != nil {
		if count, ok := intent.ChineseNumber(m[1]); ok {
			slots[types.SlotGroupSize] = strconv.Itoa(count)
		}
	} else if soloRe.MatchString(text) {
		slots[types.SlotGroupSize] = "1"
	} else if coupleRe.MatchString(text) {
		slots[types.SlotGroupSize] = "2"
	}

	if _, explicit := slots[current]; explicit {
		return slots
	}
	freeText := len(slots) == 0 && !yes && !no && !isNumber && utf8.RuneCountInString(text) <= maxRawSlotRunes
	switch current {
	case types.SlotDestination:
		if freeText {
			slots[current] = text
		}
	case types.SlotDuration:
		if isNumber && n >= 1 && n <= intent.MaxTripDays {
			slots[current] = fmt.Sprintf("%d days", n)
		}
	case types.SlotInterests:
		if no || isOneOf(norm, noPreferenceWords) {
			slots[current] = types.ThemeSightseeing
		}
	case types.SlotBudget:
		switch {
		case isNumber && n > 0:
			slots[current] = fmt.Sprintf("up to %d", n)
		case no || isOneOf(norm, noPreferenceWords):
			slots[current] = "flexible"
		case budgetMidRe.MatchString(text):
			slots[current] = "moderate"
		}
	case types.SlotTravelStyle:
		switch {
		case yes:
			slots[current] = "relaxed"
		case no:
			slots[current] = "packed"
		case isOneOf(norm, noPreferenceWords):
			slots[current] = "balanced"
		}
	case types.SlotGroupSize:
		switch {
		case yes:
			slots[current] = "1"
		case isNumber && n >= 1:
			slots[current] = strconv.Itoa(n)
		}
	default:
		if current != "" && freeText {
			slots[current] = text
		}
	}
	return slots
}
