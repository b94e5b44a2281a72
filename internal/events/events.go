// Package events defines the domain events the conversation pipeline
// publishes on the in-memory bus. Handlers live in the notification and
// scheduler modules.
package events

import (
	"github.com/google/uuid"

	"salesflow_backend/platform/events"
)

// Event names.
const (
	ConversationCreatedName  = "conversation.created"
	InteractionProcessedName = "conversation.interaction_processed"
	StageChangedName         = "conversation.stage_changed"
	EscalationRaisedName     = "conversation.escalation_raised"
	OutcomeRecordedName      = "outcome.recorded"
	OutcomeResolvedName      = "outcome.resolved"
	CalibrationAdjustedName  = "calibration.adjusted"
)

// ConversationCreated fires when a conversation state record is first
// created for a (tenant, account, contact) triple.
type ConversationCreated struct {
	events.BaseEvent
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	AccountID      uuid.UUID `json:"account_id"`
	ContactID      uuid.UUID `json:"contact_id"`
}

func (ConversationCreated) EventName() string { return ConversationCreatedName }

// InteractionProcessed fires after each inbound interaction has been merged
// into the conversation state.
type InteractionProcessed struct {
	events.BaseEvent
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Stage          string    `json:"stage"`
	Escalated      bool      `json:"escalated"`
}

func (InteractionProcessed) EventName() string { return InteractionProcessedName }

// StageChanged fires when a conversation moves to a different deal stage.
type StageChanged struct {
	events.BaseEvent
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	FromStage      string    `json:"from_stage"`
	ToStage        string    `json:"to_stage"`
}

func (StageChanged) EventName() string { return StageChangedName }

// EscalationRaised fires when an escalation report has been produced.
type EscalationRaised struct {
	events.BaseEvent
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	EscalationID   uuid.UUID `json:"escalation_id"`
	Trigger        string    `json:"trigger"`
}

func (EscalationRaised) EventName() string { return EscalationRaisedName }

// OutcomeRecorded fires when a pending outcome record is created for a
// confidence-bearing action.
type OutcomeRecorded struct {
	events.BaseEvent
	TenantID    uuid.UUID `json:"tenant_id"`
	OutcomeID   uuid.UUID `json:"outcome_id"`
	ActionType  string    `json:"action_type"`
	OutcomeType string    `json:"outcome_type"`
	Confidence  float64   `json:"confidence"`
}

func (OutcomeRecorded) EventName() string { return OutcomeRecordedName }

// OutcomeResolved fires when a pending outcome leaves pending: positive,
// negative, ambiguous, or expired.
type OutcomeResolved struct {
	events.BaseEvent
	TenantID            uuid.UUID `json:"tenant_id"`
	OutcomeID           uuid.UUID `json:"outcome_id"`
	ActionType          string    `json:"action_type"`
	OutcomeType         string    `json:"outcome_type"`
	Status              string    `json:"status"`
	Score               *float64  `json:"outcome_score,omitempty"`
	PredictedConfidence float64   `json:"predicted_confidence"`
}

func (OutcomeResolved) EventName() string { return OutcomeResolvedName }

// CalibrationAdjusted fires when the calibration engine recommends a
// confidence threshold change for an action type.
type CalibrationAdjusted struct {
	events.BaseEvent
	TenantID     uuid.UUID `json:"tenant_id"`
	ActionType   string    `json:"action_type"`
	Direction    string    `json:"direction"`
	NewThreshold float64   `json:"new_threshold"`
}

func (CalibrationAdjusted) EventName() string { return CalibrationAdjustedName }
