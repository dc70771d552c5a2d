package types

import "time"

type StateType string

const (
	StateCollecting StateType = "COLLECTING"
	StateComplete   StateType = "COMPLETE"
)

// Requirement slot names understood by the collector.
const (
	SlotDestination = "destination"
	SlotDuration    = "duration"
	SlotInterests   = "interests"
	SlotBudget      = "budget"
	SlotTravelStyle = "travel_style"
	SlotGroupSize   = "group_size"
)

var DefaultRequiredSlots = []string{
	SlotDestination, SlotDuration, SlotInterests, SlotBudget, SlotTravelStyle, SlotGroupSize,
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type ConversationTurn struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationState is the per-session requirement collection state persisted in the
// session store after every turn.
type ConversationState struct {
	SessionID           string             `json:"session_id"`
	StateType           StateType          `json:"state_type"`
	CollectedInfo       map[string]string  `json:"collected_info"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
	TurnCount           int                `json:"turn_count"`
	Summary             string             `json:"summary,omitempty"`
	Intent              *TripIntent        `json:"intent,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

func NewConversationState(sessionID string) ConversationState {
	return ConversationState{
		SessionID:     sessionID,
		StateType:     StateCollecting,
		CollectedInfo: map[string]string{},
	}
}

// MissingSlots returns the required slots that are still empty, in required order.
func (s ConversationState) MissingSlots(required []string) []string {
	var missing []string
	for _, slot := range required {
		if s.CollectedInfo[slot] == "" {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Complete reports whether every required slot is non-empty.
func (s ConversationState) Complete(required []string) bool {
	return len(s.MissingSlots(required)) == 0
}

// Clone returns a deep copy so a turn can be computed without mutating the input.
func (s ConversationState) Clone() ConversationState {
	c := s
	c.CollectedInfo = make(map[string]string, len(s.CollectedInfo))
	for k, v := range s.CollectedInfo {
		c.CollectedInfo[k] = v
	}
	c.ConversationHistory = append([]ConversationTurn(nil), s.ConversationHistory...)
	if s.Intent != nil {
		intent := *s.Intent
		c.Intent = &intent
	}
	return c
}

// TurnReply is what a caller of CollectTurn receives.
type TurnReply struct {
	SessionID string      `json:"session_id"`
	Reply     string      `json:"reply"`
	Done      bool        `json:"done"`
	Intent    *TripIntent `json:"intent,omitempty"`
}
