package progression

import (
	"testing"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"
)

func newEngine() *Engine {
	return New(tuning.Defaults().Progression)
}

func strPtr(s string) *string { return &s }

func qualificationWith(signals ...string) domain.Qualification {
	q := domain.NewQualification()
	for _, name := range signals {
		sig := domain.Signal{Identified: true, Confidence: 0.8, Value: strPtr("x")}
		switch name {
		case domain.SignalBudget:
			q.BANT.Budget = sig
		case domain.SignalAuthority:
			q.BANT.Authority = sig
		case domain.SignalNeed:
			q.BANT.Need = sig
		case domain.SignalTimeline:
			q.BANT.Timeline = sig
		case domain.SignalMetrics:
			q.MEDDIC.Metrics = sig
		case domain.SignalEconomicBuyer:
			q.MEDDIC.EconomicBuyer = sig
		case domain.SignalDecisionCriteria:
			q.MEDDIC.DecisionCriteria = domain.ListSignal{Identified: true, Values: []string{"fit"}, Confidence: 0.8}
		case domain.SignalDecisionProcess:
			q.MEDDIC.DecisionProcess = sig
		case domain.SignalPain:
			q.MEDDIC.Pain = sig
		case domain.SignalChampion:
			q.MEDDIC.Champion = sig
		}
	}
	return q
}

func TestThresholdsStrictlyIncreaseAlongPipeline(t *testing.T) {
	reqs := tuning.Defaults().Progression.Requirements
	order := []string{"discovery", "qualification", "evaluation", "negotiation"}

	for i := 1; i < len(order); i++ {
		prev, cur := reqs[order[i-1]], reqs[order[i]]
		if cur.MinBANTCompletion < prev.MinBANTCompletion {
			t.Errorf("BANT threshold decreases from %s to %s", order[i-1], order[i])
		}
		if cur.MinMEDDICCompletion < prev.MinMEDDICCompletion {
			t.Errorf("MEDDIC threshold decreases from %s to %s", order[i-1], order[i])
		}
		if cur.MinInteractions < prev.MinInteractions {
			t.Errorf("interaction threshold decreases from %s to %s", order[i-1], order[i])
		}
	}
}

func TestQualificationMEDDICThresholdIsTunedConstant(t *testing.T) {
	// One identified MEDDIC signal scores 1/6 ≈ 0.1667 and must qualify,
	// so the threshold sits just below it.
	req := tuning.Defaults().Progression.Requirements["qualification"]
	if req.MinMEDDICCompletion != 0.16 {
		t.Fatalf("qualification MEDDIC threshold must stay 0.16, got %v", req.MinMEDDICCompletion)
	}
}

func TestProposeFirstStepNeedsOnlyNeed(t *testing.T) {
	e := newEngine()

	if got := e.Propose(domain.StageProspecting, domain.NewQualification(), 0); got != nil {
		t.Errorf("no evidence must not advance, got %v", *got)
	}

	got := e.Propose(domain.StageProspecting, qualificationWith(domain.SignalNeed), 0)
	if got == nil || *got != domain.StageDiscovery {
		t.Errorf("expected discovery proposal, got %v", got)
	}
}

func TestProposeQualificationRequiresInteractions(t *testing.T) {
	e := newEngine()
	q := qualificationWith(domain.SignalNeed, domain.SignalPain)

	if got := e.Propose(domain.StageDiscovery, q, 1); got != nil {
		t.Errorf("one interaction must not reach qualification, got %v", *got)
	}

	got := e.Propose(domain.StageDiscovery, q, 2)
	if got == nil || *got != domain.StageQualification {
		t.Errorf("expected qualification proposal with 2 interactions, got %v", got)
	}
}

func TestProposeNeverSkipsStages(t *testing.T) {
	e := newEngine()
	// Evidence strong enough for any stage.
	q := qualificationWith(
		domain.SignalBudget, domain.SignalAuthority, domain.SignalNeed, domain.SignalTimeline,
		domain.SignalMetrics, domain.SignalEconomicBuyer, domain.SignalDecisionCriteria,
		domain.SignalDecisionProcess, domain.SignalPain, domain.SignalChampion,
	)

	got := e.Propose(domain.StageProspecting, q, 50)
	if got == nil || *got != domain.StageDiscovery {
		t.Errorf("overwhelming evidence must still advance one step only, got %v", got)
	}
}

func TestProposeNeverCloses(t *testing.T) {
	e := newEngine()
	q := qualificationWith(
		domain.SignalBudget, domain.SignalAuthority, domain.SignalNeed, domain.SignalTimeline,
		domain.SignalEconomicBuyer, domain.SignalDecisionCriteria, domain.SignalPain,
	)

	if got := e.Propose(domain.StageNegotiation, q, 100); got != nil {
		t.Errorf("negotiation must never auto-advance, got %v", *got)
	}
}

func TestProposeNilForStalledAndTerminal(t *testing.T) {
	e := newEngine()
	q := qualificationWith(domain.SignalNeed, domain.SignalPain)

	for _, stage := range []domain.DealStage{domain.StageStalled, domain.StageClosedWon, domain.StageClosedLost} {
		if got := e.Propose(stage, q, 10); got != nil {
			t.Errorf("stage %s must not produce proposals, got %v", stage, *got)
		}
	}
}

func TestProposeUnknownRequiredSignalFailsSafe(t *testing.T) {
	cfg := tuning.Defaults().Progression
	cfg.Requirements["discovery"] = tuning.StageRequirements{RequiredSignals: []string{"definitely_not_a_signal"}}
	e := New(cfg)

	if got := e.Propose(domain.StageProspecting, qualificationWith(domain.SignalNeed), 5); got != nil {
		t.Errorf("unknown signal names must gate to nil, got %v", *got)
	}
}
