// Package outcome tracks whether confidence-bearing agent actions worked
// out. Every scored action opens a pending record with a resolution window;
// sweeps resolve or expire them and feed the results into calibration.
package outcome

import (
	"time"

	"github.com/google/uuid"
)

// Outcome types: the signal category a record is resolved by. Each type has
// a fixed resolution window.
const (
	TypeEmailEngagement  = "email_engagement"
	TypeMeetingOutcome   = "meeting_outcome"
	TypeEscalationResult = "escalation_result"
	TypeDealProgression  = "deal_progression"
)

// Resolution statuses.
const (
	StatusPending   = "pending"
	StatusPositive  = "positive"
	StatusNegative  = "negative"
	StatusAmbiguous = "ambiguous"
	StatusExpired   = "expired"
)

// Signal sources for a resolution.
const (
	SourceAutomatic  = "automatic"
	SourceHumanLabel = "human_label"
)

// KnownType reports whether t is a recognized outcome type.
func KnownType(t string) bool {
	switch t {
	case TypeEmailEngagement, TypeMeetingOutcome, TypeEscalationResult, TypeDealProgression:
		return true
	}
	return false
}

// resolvableStatus reports whether s is a status a caller may resolve to.
// Pending is the starting state and expired is reserved for the expiry sweep.
func resolvableStatus(s string) bool {
	switch s {
	case StatusPositive, StatusNegative, StatusAmbiguous:
		return true
	}
	return false
}

// Record is one tracked prediction: the action the agent took, the
// confidence it attached, and what eventually happened.
type Record struct {
	ID                  uuid.UUID      `json:"id"`
	TenantID            uuid.UUID      `json:"tenant_id"`
	ConversationID      uuid.UUID      `json:"conversation_id"`
	ActionType          string         `json:"action_type"`
	ActionID            *uuid.UUID     `json:"action_id,omitempty"`
	PredictedConfidence float64        `json:"predicted_confidence"`
	OutcomeType         string         `json:"outcome_type"`
	Status              string         `json:"status"`
	Score               *float64       `json:"outcome_score,omitempty"`
	SignalSource        *string        `json:"signal_source,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	WindowExpiresAt     time.Time      `json:"window_expires_at"`
	CreatedAt           time.Time      `json:"created_at"`
	ResolvedAt          *time.Time     `json:"resolved_at,omitempty"`
}

// MetadataInt reads an integer metadata field. JSON round-trips numbers as
// float64, so both representations are accepted.
func (r *Record) MetadataInt(key string) (int, bool) {
	v, ok := r.Metadata[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// MetadataString reads a string metadata field.
func (r *Record) MetadataString(key string) (string, bool) {
	v, ok := r.Metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
