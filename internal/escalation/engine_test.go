package escalation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"

	"github.com/google/uuid"
)

func testState(stage domain.DealStage, confidence float64) *domain.Conversation {
	c := domain.NewConversation(uuid.New(), uuid.New(), uuid.New())
	c.ContactName = "Dana Fields"
	c.Stage = stage
	c.ConfidenceScore = confidence
	c.InteractionCount = 3
	return &c
}

func newTestEngine(completer Completer) *Engine {
	return New(tuning.Defaults().Escalation, completer, nil)
}

func TestEvaluateNoTrigger(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageDiscovery, 0.85)

	if got := e.Evaluate(context.Background(), state, "Thanks, the demo looked great."); got != nil {
		t.Fatalf("expected no escalation, got trigger %s", got.EscalationTrigger)
	}
}

func TestCustomerRequestBeatsHighStakes(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageNegotiation, 0.9)

	report := e.Evaluate(context.Background(), state, "Can someone call me about pricing and contract terms?")
	if report == nil {
		t.Fatal("expected escalation")
	}
	if report.EscalationTrigger != TriggerCustomerRequest {
		t.Fatalf("trigger = %s, want %s", report.EscalationTrigger, TriggerCustomerRequest)
	}
	if report.WhyEscalating == "" || report.RecommendedNextAction == "" {
		t.Fatal("report must carry an explanation and a recommendation")
	}
}

func TestCustomerRequestCaseInsensitive(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageProspecting, 0.9)

	report := e.Evaluate(context.Background(), state, "I want to SPEAK TO SOMEONE about this.")
	if report == nil || report.EscalationTrigger != TriggerCustomerRequest {
		t.Fatalf("expected customer_request trigger, got %+v", report)
	}
}

func TestHighStakesOnlyInLateStages(t *testing.T) {
	e := newTestEngine(nil)
	message := "What discount can you offer on the renewal?"

	for _, stage := range []domain.DealStage{domain.StageNegotiation, domain.StageEvaluation} {
		report := e.Evaluate(context.Background(), testState(stage, 0.9), message)
		if report == nil || report.EscalationTrigger != TriggerHighStakes {
			t.Fatalf("stage %s: expected high_stakes trigger, got %+v", stage, report)
		}
	}

	if report := e.Evaluate(context.Background(), testState(domain.StageDiscovery, 0.9), message); report != nil {
		t.Fatalf("discovery stage should not trip high_stakes, got %s", report.EscalationTrigger)
	}
}

func TestConfidenceFloor(t *testing.T) {
	e := newTestEngine(nil)

	report := e.Evaluate(context.Background(), testState(domain.StageDiscovery, 0.69), "Sounds good.")
	if report == nil || report.EscalationTrigger != TriggerConfidenceThreshold {
		t.Fatalf("expected confidence_threshold trigger, got %+v", report)
	}

	if report := e.Evaluate(context.Background(), testState(domain.StageDiscovery, 0.7), "Sounds good."); report != nil {
		t.Fatalf("confidence exactly at floor should not escalate, got %s", report.EscalationTrigger)
	}
}

func TestComplexityTrigger(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageQualification, 0.9)
	state.Qualification.MEDDIC.DecisionCriteria.Values = []string{"security", "price", "integrations"}
	state.Qualification.MEDDIC.EconomicBuyer.Identified = true
	state.Qualification.MEDDIC.Champion.Identified = true

	report := e.Evaluate(context.Background(), state, "Sounds good.")
	if report == nil || report.EscalationTrigger != TriggerComplexity {
		t.Fatalf("expected complexity trigger, got %+v", report)
	}

	// One stakeholder is not enough.
	state.Qualification.MEDDIC.Champion.Identified = false
	if report := e.Evaluate(context.Background(), state, "Sounds good."); report != nil {
		t.Fatalf("single stakeholder should not trip complexity, got %s", report.EscalationTrigger)
	}
}

type stubCompleter struct {
	answer string
	err    error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.answer, s.err
}

func TestRecommendationFallsBackWhenCompleterFails(t *testing.T) {
	e := newTestEngine(stubCompleter{err: errors.New("upstream down")})
	state := testState(domain.StageNegotiation, 0.9)

	report := e.Evaluate(context.Background(), state, "call me please")
	if report == nil {
		t.Fatal("expected escalation")
	}
	if report.RecommendedNextAction != cannedRecommendations[TriggerCustomerRequest] {
		t.Fatalf("expected canned recommendation, got %q", report.RecommendedNextAction)
	}
}

func TestRecommendationUsesCompleterWhenAvailable(t *testing.T) {
	e := newTestEngine(stubCompleter{answer: "  Call Dana today.  "})
	state := testState(domain.StageNegotiation, 0.9)

	report := e.Evaluate(context.Background(), state, "call me please")
	if report == nil {
		t.Fatal("expected escalation")
	}
	if report.RecommendedNextAction != "Call Dana today." {
		t.Fatalf("got %q", report.RecommendedNextAction)
	}
}

func TestNotificationTargetsFromExtensions(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageNegotiation, 0.9)
	state.Extensions.Notify = &domain.NotifyTargets{
		RepEmail:     "rep@example.com",
		ManagerEmail: "manager@example.com",
	}

	report := e.Evaluate(context.Background(), state, "call me please")
	if report == nil {
		t.Fatal("expected escalation")
	}
	if len(report.NotificationTargets) != 2 || report.NotificationTargets[0] != "rep@example.com" {
		t.Fatalf("targets = %v", report.NotificationTargets)
	}
}

func TestReportCarriesAccountContext(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageNegotiation, 0.9)

	report := e.Evaluate(context.Background(), state, "call me please")
	if report == nil {
		t.Fatal("expected escalation")
	}
	if !strings.Contains(report.AccountContext, "Dana Fields") {
		t.Fatalf("account context should name the contact: %q", report.AccountContext)
	}
	if !strings.Contains(report.WhatAgentTried, "3 automated interactions") {
		t.Fatalf("what-agent-tried should summarize history: %q", report.WhatAgentTried)
	}
}
