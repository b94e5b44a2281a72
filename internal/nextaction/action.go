// Package nextaction plans the agent's next move for a conversation. A small
// ordered rule list covers the unambiguous cases; everything else goes to the
// completion model with a deterministic fallback.
package nextaction

// Action types the planner can emit.
const (
	TypeSendEmail       = "send_email"
	TypeScheduleMeeting = "schedule_meeting"
	TypeFollowUp        = "follow_up"
	TypeEscalate        = "escalate"
	TypeWait            = "wait"
)

// Priority levels, highest first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Action is one recommended next step for a conversation.
type Action struct {
	Type            string `json:"type"`
	Description     string `json:"description"`
	Priority        string `json:"priority"`
	SuggestedTiming string `json:"suggested_timing,omitempty"`
	Context         string `json:"context,omitempty"`
}

var priorityRank = map[string]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// validPriority reports whether p is one of the known priority levels.
func validPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}

var validTypes = map[string]bool{
	TypeSendEmail:       true,
	TypeScheduleMeeting: true,
	TypeFollowUp:        true,
	TypeEscalate:        true,
	TypeWait:            true,
}
