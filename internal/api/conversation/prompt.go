package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

func getSlotExtractionPrompt(state types.ConversationState, utterance, current string, missing, required []string) string {
	collected, _ := json.Marshal(state.CollectedInfo)
	summary := state.Summary
	if summary == "" {
		summary = "(none yet)"
	}
	return fmt.Sprintf(`
You are collecting the requirements for a multi-day trip through a conversation.

SLOTS:
    - destination: the region or city to visit
    - duration: number of days, for example "3 days"
    - interests: what the traveller wants to do, for example "nature, food"
    - budget: nightly accommodation budget, a range such as "1500-3000", or low, moderate, luxury, flexible
    - travel_style: relaxed, balanced or packed
    - group_size: number of travellers as a number

REQUIRED SLOTS: [%s]
ALREADY COLLECTED: %s
CONVERSATION SUMMARY: %s
STILL MISSING: [%s]
LAST QUESTION ASKED ABOUT: %s

USER MESSAGE:
%s

Return ONLY a JSON object, no markdown:
{"slots": {"<slot name>": "<value>"}, "summary": "<one or two sentence summary of everything known so far>"}

RULES:
    - Include a slot only when the message gives explicit information for it.
    - Interpret short replies such as yes, no or a bare number as answers to the last question.
    - Never include a slot with an empty value.
`, strings.Join(required, ", "), collected, summary, strings.Join(missing, ", "), current, strings.TrimSpace(utterance))
}
