// Package escalation decides when a conversation must be handed off to a
// human and builds the structured handoff report.
package escalation

import (
	"github.com/google/uuid"
)

// Trigger names, in evaluation priority order.
const (
	TriggerCustomerRequest     = "customer_request"
	TriggerHighStakes          = "high_stakes"
	TriggerConfidenceThreshold = "confidence_threshold"
	TriggerComplexity          = "complexity"
)

// Report is the structured handoff package a human rep receives.
type Report struct {
	EscalationID          uuid.UUID `json:"escalation_id"`
	TenantID              uuid.UUID `json:"tenant_id"`
	AccountID             uuid.UUID `json:"account_id"`
	ContactID             uuid.UUID `json:"contact_id"`
	ContactName           string    `json:"contact_name"`
	DealStage             string    `json:"deal_stage"`
	EscalationTrigger     string    `json:"escalation_trigger"`
	ConfidenceScore       float64   `json:"confidence_score"`
	AccountContext        string    `json:"account_context"`
	WhatAgentTried        string    `json:"what_agent_tried"`
	WhyEscalating         string    `json:"why_escalating"`
	RecommendedNextAction string    `json:"recommended_next_action"`
	ConversationExcerpts  []string  `json:"relevant_conversation_excerpts,omitempty"`
	NotificationTargets   []string  `json:"notification_targets,omitempty"`
}
