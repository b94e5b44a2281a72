package calibration

import (
	"context"
	"testing"

	domainevents "salesflow_backend/internal/events"
	"salesflow_backend/platform/events"

	"github.com/google/uuid"
)

func TestResolvedOutcomesFeedBins(t *testing.T) {
	store := newFakeBinStore()
	engine := newTestEngine(store)
	bus := events.NewInMemoryBus(nil)
	SubscribeToOutcomes(bus, engine)
	tenant := uuid.New()

	score := 1.0
	resolved := domainevents.OutcomeResolved{
		BaseEvent:           events.NewBaseEvent(),
		TenantID:            tenant,
		OutcomeID:           uuid.New(),
		ActionType:          "send_email",
		OutcomeType:         "email_engagement",
		Status:              "positive",
		Score:               &score,
		PredictedConfidence: 0.85,
	}
	if err := bus.PublishSync(context.Background(), resolved); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	expired := resolved
	expired.Status = "expired"
	expired.Score = nil
	if err := bus.PublishSync(context.Background(), expired); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	bins, err := store.List(context.Background(), tenant, "send_email")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bins) != 1 {
		t.Fatalf("bins = %d, want 1", len(bins))
	}
	bin := bins[0]
	if bin.BinIndex != 8 {
		t.Fatalf("bin index = %d, want 8", bin.BinIndex)
	}
	if bin.SampleCount != 2 || bin.OutcomeSum != 1.0 {
		t.Fatalf("samples = %d sum = %.1f, want 2 and 1.0", bin.SampleCount, bin.OutcomeSum)
	}
}

func TestGradedScoresDoNotLeakIntoBins(t *testing.T) {
	store := newFakeBinStore()
	engine := newTestEngine(store)
	bus := events.NewInMemoryBus(nil)
	SubscribeToOutcomes(bus, engine)
	tenant := uuid.New()

	// A two-step progression resolves positive with a graded score of 0.4;
	// the bin still accumulates a full 1.0.
	score := 0.4
	event := domainevents.OutcomeResolved{
		BaseEvent:           events.NewBaseEvent(),
		TenantID:            tenant,
		OutcomeID:           uuid.New(),
		ActionType:          "advance_stage",
		OutcomeType:         "deal_progression",
		Status:              "positive",
		Score:               &score,
		PredictedConfidence: 0.55,
	}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	bins, err := store.List(context.Background(), tenant, "advance_stage")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bins) != 1 || bins[0].OutcomeSum != 1.0 {
		t.Fatalf("bins = %+v, want one bin with outcome sum 1.0", bins)
	}
}

func TestAmbiguousResolutionsAreSkipped(t *testing.T) {
	store := newFakeBinStore()
	engine := newTestEngine(store)
	bus := events.NewInMemoryBus(nil)
	SubscribeToOutcomes(bus, engine)
	tenant := uuid.New()

	event := domainevents.OutcomeResolved{
		BaseEvent:           events.NewBaseEvent(),
		TenantID:            tenant,
		OutcomeID:           uuid.New(),
		ActionType:          "escalate",
		OutcomeType:         "escalation_result",
		Status:              "ambiguous",
		PredictedConfidence: 0.7,
	}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	bins, err := store.List(context.Background(), tenant, "escalate")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bins) != 0 {
		t.Fatalf("bins = %+v, want none for an ambiguous resolution", bins)
	}
}
