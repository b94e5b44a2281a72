package notification

import (
	"strings"
	"testing"

	"salesflow_backend/internal/escalation"

	"github.com/google/uuid"
)

func sampleReport() *escalation.Report {
	return &escalation.Report{
		EscalationID:          uuid.New(),
		TenantID:              uuid.New(),
		ContactName:           "Ade Okafor",
		DealStage:             "negotiation",
		EscalationTrigger:     escalation.TriggerHighStakes,
		ConfidenceScore:       0.9,
		AccountContext:        "Deal in negotiation after 6 automated interactions.",
		WhatAgentTried:        "Answered pricing questions from the knowledge base.",
		WhyEscalating:         "The conversation touched contract terms.",
		RecommendedNextAction: "Have the account rep call before end of day.",
		ConversationExcerpts:  []string{"We need sign-off from legal."},
		NotificationTargets:   []string{"rep@example.com", "manager@example.com"},
	}
}

func TestRenderReportIncludesDecisionContext(t *testing.T) {
	body := renderReport(sampleReport())

	for _, want := range []string{
		"Ade Okafor",
		"negotiation",
		escalation.TriggerHighStakes,
		"contract terms",
		"call before end of day",
		"sign-off from legal",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildMessageAddressesAllTargets(t *testing.T) {
	m := &Mailer{fromName: "Salesflow", fromAddr: "no-reply@salesflow.local"}

	msg, err := m.buildMessage(sampleReport())
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	recipients, err := msg.GetRecipients()
	if err != nil {
		t.Fatalf("GetRecipients: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("recipients = %v, want 2", recipients)
	}
}

func TestBuildMessageRejectsMalformedTarget(t *testing.T) {
	m := &Mailer{fromName: "Salesflow", fromAddr: "no-reply@salesflow.local"}
	report := sampleReport()
	report.NotificationTargets = []string{"not-an-address"}

	if _, err := m.buildMessage(report); err == nil {
		t.Fatal("expected error for malformed notification target")
	}
}
