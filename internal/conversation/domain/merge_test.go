package domain

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func sampleQualification() Qualification {
	return Qualification{
		BANT: BANT{
			Budget:   Signal{Identified: true, Value: strPtr("$50k-$100k"), Evidence: strPtr("we have budget approved"), Confidence: 0.8},
			Need:     Signal{Identified: true, Value: strPtr("pipeline visibility"), Confidence: 0.6},
			Timeline: Signal{Value: strPtr("maybe Q3")},
		},
		MEDDIC: MEDDIC{
			Pain:             Signal{Identified: true, Value: strPtr("manual reporting"), Evidence: strPtr("we waste hours every week"), Confidence: 0.7},
			DecisionCriteria: ListSignal{Identified: true, Values: []string{"price", "integrations"}, Confidence: 0.5},
		},
		OverallConfidence: 0.65,
		KeyInsights:       []string{"champion is warming up"},
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := sampleQualification()
	merged := MergeQualification(s, s)
	merged.LastUpdated = nil

	if !reflect.DeepEqual(merged, s) {
		t.Fatalf("merge(s, s) != s:\ngot  %+v\nwant %+v", merged, s)
	}
}

func TestMergeAntiRegression(t *testing.T) {
	existing := sampleQualification()
	incoming := NewQualification() // nothing identified

	merged := MergeQualification(existing, incoming)

	checks := map[string]bool{
		"budget":            merged.BANT.Budget.Identified,
		"need":              merged.BANT.Need.Identified,
		"pain":              merged.MEDDIC.Pain.Identified,
		"decision_criteria": merged.MEDDIC.DecisionCriteria.Identified,
	}
	for name, identified := range checks {
		if !identified {
			t.Errorf("%s lost its identified flag after merging an empty snapshot", name)
		}
	}
}

func TestMergeNewSignalWins(t *testing.T) {
	existing := NewQualification()
	incoming := NewQualification()
	incoming.BANT.Budget = Signal{Identified: true, Value: strPtr("$50k"), Evidence: strPtr("mentioned $50k"), Confidence: 0.6}

	merged := MergeQualification(existing, incoming)

	if !merged.BANT.Budget.Identified {
		t.Fatal("expected budget identified after merge")
	}
	if merged.BANT.Budget.Value == nil || *merged.BANT.Budget.Value != "$50k" {
		t.Errorf("expected value $50k, got %v", merged.BANT.Budget.Value)
	}
	if merged.BANT.Budget.Evidence == nil || *merged.BANT.Budget.Evidence != "mentioned $50k" {
		t.Errorf("expected evidence from new snapshot, got %v", merged.BANT.Budget.Evidence)
	}
}

func TestMergeTieKeepsExistingValue(t *testing.T) {
	existing := NewQualification()
	existing.BANT.Need = Signal{Identified: true, Value: strPtr("old need"), Confidence: 0.7}
	incoming := NewQualification()
	incoming.BANT.Need = Signal{Identified: true, Value: strPtr("new need"), Confidence: 0.7}

	merged := MergeQualification(existing, incoming)
	if *merged.BANT.Need.Value != "old need" {
		t.Errorf("tie must favor existing value, got %q", *merged.BANT.Need.Value)
	}

	// Strictly greater incoming confidence takes the value.
	incoming.BANT.Need.Confidence = 0.71
	merged = MergeQualification(existing, incoming)
	if *merged.BANT.Need.Value != "new need" {
		t.Errorf("higher confidence must take the value, got %q", *merged.BANT.Need.Value)
	}
	if merged.BANT.Need.Confidence != 0.71 {
		t.Errorf("confidence must be the max, got %f", merged.BANT.Need.Confidence)
	}
}

func TestMergeEvidenceAppendsAndDedups(t *testing.T) {
	existing := NewQualification()
	existing.MEDDIC.Pain = Signal{Identified: true, Evidence: strPtr("quote A"), Confidence: 0.5}
	incoming := NewQualification()
	incoming.MEDDIC.Pain = Signal{Identified: true, Evidence: strPtr("quote B"), Confidence: 0.5}

	merged := MergeQualification(existing, incoming)
	if got := *merged.MEDDIC.Pain.Evidence; got != "quote A | quote B" {
		t.Errorf("expected appended evidence, got %q", got)
	}

	// Exact substring is not appended twice.
	again := MergeQualification(merged, incoming)
	if got := *again.MEDDIC.Pain.Evidence; got != "quote A | quote B" {
		t.Errorf("expected dedup on exact substring, got %q", got)
	}
}

func TestMergeOverallConfidenceIsMax(t *testing.T) {
	a := NewQualification()
	a.OverallConfidence = 0.4
	b := NewQualification()
	b.OverallConfidence = 0.9

	if got := MergeQualification(a, b).OverallConfidence; got != 0.9 {
		t.Errorf("expected 0.9, got %f", got)
	}
	if got := MergeQualification(b, a).OverallConfidence; got != 0.9 {
		t.Errorf("expected 0.9 in reverse order, got %f", got)
	}
}

func TestMergeDecisionCriteriaUnion(t *testing.T) {
	existing := NewQualification()
	existing.MEDDIC.DecisionCriteria = ListSignal{Identified: true, Values: []string{"price", "security"}}
	incoming := NewQualification()
	incoming.MEDDIC.DecisionCriteria = ListSignal{Identified: true, Values: []string{"security", "support"}}

	merged := MergeQualification(existing, incoming)
	want := []string{"price", "security", "support"}
	if !reflect.DeepEqual(merged.MEDDIC.DecisionCriteria.Values, want) {
		t.Errorf("expected union %v, got %v", want, merged.MEDDIC.DecisionCriteria.Values)
	}
}

func TestMergeNextQuestionsReplacedFresh(t *testing.T) {
	existing := NewQualification()
	existing.RecommendedNextQuestions = []string{"old question"}
	incoming := NewQualification()
	incoming.RecommendedNextQuestions = []string{"new question"}

	merged := MergeQualification(existing, incoming)
	if len(merged.RecommendedNextQuestions) != 1 || merged.RecommendedNextQuestions[0] != "new question" {
		t.Errorf("expected fresh replacement, got %v", merged.RecommendedNextQuestions)
	}

	// An empty incoming list keeps the previous guidance.
	incoming.RecommendedNextQuestions = nil
	merged = MergeQualification(existing, incoming)
	if len(merged.RecommendedNextQuestions) != 1 || merged.RecommendedNextQuestions[0] != "old question" {
		t.Errorf("expected existing questions kept, got %v", merged.RecommendedNextQuestions)
	}
}

func TestCompletionScores(t *testing.T) {
	q := sampleQualification()

	if got := q.BANT.CompletionScore(); got != 0.5 {
		t.Errorf("expected BANT completion 0.5, got %f", got)
	}
	// pain + decision_criteria identified out of six.
	want := 2.0 / 6.0
	if got := q.MEDDIC.CompletionScore(); got != want {
		t.Errorf("expected MEDDIC completion %f, got %f", want, got)
	}
	wantCombined := (0.5 + want) / 2.0
	if got := q.CombinedCompletion(); got != wantCombined {
		t.Errorf("expected combined %f, got %f", wantCombined, got)
	}
}

func TestSignalIdentifiedUnknownNameIsFalse(t *testing.T) {
	q := sampleQualification()
	if q.SignalIdentified("no_such_signal") {
		t.Error("unknown signal name must be fail-safe false")
	}
	if !q.SignalIdentified(SignalPain) {
		t.Error("expected pain identified")
	}
}
