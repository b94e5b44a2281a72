package nextaction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"

	"github.com/google/uuid"
)

type stubCompleter struct {
	answer string
	err    error
	called bool
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.called = true
	return s.answer, s.err
}

func newTestEngine(c Completer) *Engine {
	e := New(tuning.Defaults().NextAction, c, nil)
	e.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return e
}

func testState(stage domain.DealStage) *domain.Conversation {
	c := domain.NewConversation(uuid.New(), uuid.New(), uuid.New())
	c.Stage = stage
	c.InteractionCount = 3
	last := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	c.LastInteraction = &last
	return &c
}

func TestEscalatedBeatsEverything(t *testing.T) {
	completer := &stubCompleter{}
	e := newTestEngine(completer)
	state := testState(domain.StageNegotiation)
	state.Escalated = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Type != TypeEscalate || actions[0].Priority != PriorityUrgent {
		t.Fatalf("actions = %+v", actions)
	}
	if completer.called {
		t.Fatal("rule-decided plan must not call the model")
	}
}

func TestTerminalStageWaits(t *testing.T) {
	e := newTestEngine(nil)
	for _, stage := range []domain.DealStage{domain.StageClosedWon, domain.StageClosedLost} {
		actions := e.Plan(context.Background(), testState(stage))
		if len(actions) != 1 || actions[0].Type != TypeWait || actions[0].Priority != PriorityLow {
			t.Fatalf("stage %s: actions = %+v", stage, actions)
		}
	}
}

func TestFirstContactIsInitialOutreach(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageProspecting)
	state.InteractionCount = 0
	state.LastInteraction = nil

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 {
		t.Fatalf("expected one action, got %d", len(actions))
	}
	a := actions[0]
	if a.Type != TypeSendEmail || a.Priority != PriorityHigh || a.SuggestedTiming != "within 24 hours" {
		t.Fatalf("action = %+v", a)
	}
	if !strings.Contains(a.Description, "initial outreach") {
		t.Fatalf("description = %q", a.Description)
	}
}

func TestStaleConversationGetsFollowUp(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageNegotiation)
	last := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	state.LastInteraction = &last

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Type != TypeFollowUp || actions[0].Priority != PriorityHigh {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestStalledStageSkipsStaleRule(t *testing.T) {
	completer := &stubCompleter{err: errors.New("down")}
	e := newTestEngine(completer)
	state := testState(domain.StageStalled)
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state.LastInteraction = &last

	actions := e.Plan(context.Background(), state)
	if actions[0].Type == TypeFollowUp && actions[0].Priority == PriorityHigh {
		// Stalled conversations get the gentler fallback path, not the
		// stale-thread follow-up rule.
		t.Fatalf("stalled conversation took the stale rule: %+v", actions)
	}
	if !completer.called {
		t.Fatal("stalled conversation with fresh qualification should reach the model path")
	}
}

func TestLowCompletionNamesGaps(t *testing.T) {
	e := newTestEngine(nil)
	state := testState(domain.StageDiscovery)
	state.Qualification.BANT.Need.Identified = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Type != TypeSendEmail || actions[0].Priority != PriorityMedium {
		t.Fatalf("actions = %+v", actions)
	}
	if !strings.Contains(actions[0].Description, "budget") {
		t.Fatalf("description should name the missing signals: %q", actions[0].Description)
	}
}

func TestLowCompletionOnlyInEarlyStages(t *testing.T) {
	completer := &stubCompleter{err: errors.New("down")}
	e := newTestEngine(completer)
	state := testState(domain.StageNegotiation)

	actions := e.Plan(context.Background(), state)
	if actions[0].Type == TypeSendEmail && strings.Contains(actions[0].Description, "probing") {
		t.Fatalf("negotiation should not take the qualification-gap rule: %+v", actions)
	}
}

func TestModelPlanParsed(t *testing.T) {
	completer := &stubCompleter{answer: `Here is my plan:
[{"type":"schedule_meeting","description":"Book a demo","priority":"high","suggested_timing":"this week"},
 {"type":"send_email","description":"Share a case study","priority":"medium"}]`}
	e := newTestEngine(completer)
	state := testState(domain.StageEvaluation)
	state.Qualification.BANT.Need.Identified = true
	state.Qualification.BANT.Budget.Identified = true
	state.Qualification.MEDDIC.Pain.Identified = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %+v", actions)
	}
	if actions[0].Type != TypeScheduleMeeting || actions[1].Type != TypeSendEmail {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestModelPlanClampedToMax(t *testing.T) {
	completer := &stubCompleter{answer: `[
{"type":"send_email","description":"a","priority":"high"},
{"type":"send_email","description":"b","priority":"high"},
{"type":"send_email","description":"c","priority":"high"},
{"type":"send_email","description":"d","priority":"high"}]`}
	e := newTestEngine(completer)
	state := testState(domain.StageEvaluation)
	state.Qualification.BANT.Need.Identified = true
	state.Qualification.BANT.Budget.Identified = true
	state.Qualification.MEDDIC.Pain.Identified = true

	if actions := e.Plan(context.Background(), state); len(actions) != 3 {
		t.Fatalf("expected clamp to 3, got %d", len(actions))
	}
}

func TestModelPlanInvalidEntriesDropped(t *testing.T) {
	completer := &stubCompleter{answer: `[
{"type":"teleport","description":"nope","priority":"high"},
{"type":"send_email","description":"","priority":"high"},
{"type":"send_email","description":"real one","priority":"sideways"}]`}
	e := newTestEngine(completer)
	state := testState(domain.StageEvaluation)
	state.Qualification.BANT.Need.Identified = true
	state.Qualification.BANT.Budget.Identified = true
	state.Qualification.MEDDIC.Pain.Identified = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Description != "real one" {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].Priority != PriorityMedium {
		t.Fatalf("unknown priority should normalize to medium, got %s", actions[0].Priority)
	}
}

func TestModelFailureFallsBackByStage(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream down")}
	e := newTestEngine(completer)
	state := testState(domain.StageEvaluation)
	state.Qualification.BANT.Need.Identified = true
	state.Qualification.BANT.Budget.Identified = true
	state.Qualification.MEDDIC.Pain.Identified = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Type != TypeScheduleMeeting {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestGarbageReplyFallsBack(t *testing.T) {
	completer := &stubCompleter{answer: "I think you should probably wait and see."}
	e := newTestEngine(completer)
	state := testState(domain.StageNegotiation)
	state.Qualification.BANT.Need.Identified = true
	state.Qualification.BANT.Budget.Identified = true
	state.Qualification.MEDDIC.Pain.Identified = true

	actions := e.Plan(context.Background(), state)
	if len(actions) != 1 || actions[0].Type != TypeFollowUp {
		t.Fatalf("actions = %+v", actions)
	}
}
