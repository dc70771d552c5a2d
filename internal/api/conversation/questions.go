package conversation

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

// nextQuestion asks for slot and mentions what is already known.
func nextQuestion(slot string, collected map[string]string) string {
	dest := collected[types.SlotDestination]
	duration := collected[types.SlotDuration]

	switch slot {
	case types.SlotDestination:
		return "Where would you like to go?"
	case types.SlotDuration:
		if dest != "" {
			return fmt.Sprintf("How many days would you like to spend in %s?", dest)
		}
		return "How many days is your trip?"
	case types.SlotInterests:
		switch {
		case dest != "" && duration != "":
			return fmt.Sprintf("What would you like to do during your %s in %s? For example nature, food, culture or shopping.", duration, dest)
		case dest != "":
			return fmt.Sprintf("What would you like to do in %s? For example nature, food, culture or shopping.", dest)
		}
		return "What are you interested in? For example nature, food, culture or shopping."
	case types.SlotBudget:
		if dest != "" {
			return fmt.Sprintf("What is your nightly accommodation budget in %s? A range is fine, or say it is flexible.", dest)
		}
		return "What is your nightly accommodation budget? A range is fine, or say it is flexible."
	case types.SlotTravelStyle:
		if interests := collected[types.SlotInterests]; interests != "" {
			return fmt.Sprintf("Noted, %s. Do you prefer a relaxed pace? Say no if you would rather pack the days.", interests)
		}
		return "Do you prefer a relaxed pace? Say no if you would rather pack the days."
	case types.SlotGroupSize:
		return "Are you travelling alone? If not, how many people are in your group?"
	default:
		return fmt.Sprintf("Could you tell me your %s?", strings.ReplaceAll(slot, "_", " "))
	}
}

func completionMessage(state types.ConversationState) string {
	dest := state.CollectedInfo[types.SlotDestination]
	if state.Intent != nil {
		if state.Intent.Destination != "" {
			dest = state.Intent.Destination
		}
		if dest != "" {
			return fmt.Sprintf("Thanks! I have everything I need to plan your %d-day trip to %s.", state.Intent.Days, dest)
		}
		return fmt.Sprintf("Thanks! I have everything I need to plan your %d-day trip.", state.Intent.Days)
	}
	return "Thanks! I have everything I need to plan your trip."
}
