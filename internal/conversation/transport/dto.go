// Package transport defines the request and response shapes of the
// conversation HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/escalation"
	"salesflow_backend/internal/nextaction"
)

// InteractionRequest is an inbound customer interaction to process.
type InteractionRequest struct {
	AccountID    uuid.UUID `json:"account_id" binding:"required"`
	ContactID    uuid.UUID `json:"contact_id" binding:"required"`
	ContactEmail string    `json:"contact_email" validate:"omitempty,email"`
	ContactName  string    `json:"contact_name"`
	ContactPhone string    `json:"contact_phone"`
	Channel      string    `json:"channel" binding:"required" validate:"oneof=email chat"`
	Message      string    `json:"message" binding:"required"`
	Persona      string    `json:"persona" validate:"omitempty,oneof=ic manager c_suite"`
}

// InteractionResponse is the decision package for one processed interaction.
type InteractionResponse struct {
	Conversation *ConversationResponse `json:"conversation"`
	StageChanged bool                  `json:"stage_changed"`
	Escalation   *escalation.Report    `json:"escalation,omitempty"`
	NextActions  []nextaction.Action   `json:"next_actions"`
}

// ConversationResponse is the API view of a conversation state.
type ConversationResponse struct {
	ID               uuid.UUID            `json:"id"`
	AccountID        uuid.UUID            `json:"account_id"`
	ContactID        uuid.UUID            `json:"contact_id"`
	ContactEmail     string               `json:"contact_email,omitempty"`
	ContactName      string               `json:"contact_name,omitempty"`
	ContactPhone     string               `json:"contact_phone,omitempty"`
	Stage            string               `json:"stage"`
	Persona          string               `json:"persona"`
	Qualification    domain.Qualification `json:"qualification"`
	InteractionCount int                  `json:"interaction_count"`
	LastInteraction  *time.Time           `json:"last_interaction,omitempty"`
	LastChannel      *string              `json:"last_channel,omitempty"`
	Escalated        bool                 `json:"escalated"`
	EscalationReason *string              `json:"escalation_reason,omitempty"`
	ConfidenceScore  float64              `json:"confidence_score"`
	Extensions       domain.Extensions    `json:"extensions,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// NewConversationResponse maps a domain conversation to its API view.
func NewConversationResponse(conv *domain.Conversation) *ConversationResponse {
	resp := &ConversationResponse{
		ID:               conv.ID,
		AccountID:        conv.AccountID,
		ContactID:        conv.ContactID,
		ContactEmail:     conv.ContactEmail,
		ContactName:      conv.ContactName,
		ContactPhone:     conv.ContactPhone,
		Stage:            string(conv.Stage),
		Persona:          string(conv.Persona),
		Qualification:    conv.Qualification,
		InteractionCount: conv.InteractionCount,
		LastInteraction:  conv.LastInteraction,
		Escalated:        conv.Escalated,
		EscalationReason: conv.EscalationReason,
		ConfidenceScore:  conv.ConfidenceScore,
		Extensions:       conv.Extensions,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
	}
	if conv.LastChannel != nil {
		ch := string(*conv.LastChannel)
		resp.LastChannel = &ch
	}
	return resp
}

// ListConversationsRequest filters the conversation list.
type ListConversationsRequest struct {
	Stage  string `form:"stage" validate:"omitempty,oneof=prospecting discovery qualification evaluation negotiation closed_won closed_lost stalled"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}

// StageOverrideRequest is a human-initiated stage change.
type StageOverrideRequest struct {
	Stage  string `json:"stage" binding:"required" validate:"oneof=prospecting discovery qualification evaluation negotiation closed_won closed_lost stalled"`
	Reason string `json:"reason"`
}

// NextActionsResponse wraps the planned actions for a conversation.
type NextActionsResponse struct {
	ConversationID uuid.UUID           `json:"conversation_id"`
	Actions        []nextaction.Action `json:"actions"`
}

// FeedbackRequest records a human judgment of an agent decision.
type FeedbackRequest struct {
	DecisionKind string `json:"decision_kind" binding:"required"`
	Source       string `json:"source" binding:"required"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}
