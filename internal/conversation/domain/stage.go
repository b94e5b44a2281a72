// Package domain provides core business rules for the conversation bounded
// context: the deal-stage state machine and the qualification model with its
// merge engine.
package domain

import "fmt"

// DealStage is the position of a conversation in the sales pipeline.
type DealStage string

const (
	StageProspecting   DealStage = "prospecting"
	StageDiscovery     DealStage = "discovery"
	StageQualification DealStage = "qualification"
	StageEvaluation    DealStage = "evaluation"
	StageNegotiation   DealStage = "negotiation"
	StageClosedWon     DealStage = "closed_won"
	StageClosedLost    DealStage = "closed_lost"
	StageStalled       DealStage = "stalled"
)

// pipelineOrder is the canonical forward progression. Closing is not part of
// it: moving into closed_won/closed_lost is a human decision.
var pipelineOrder = []DealStage{
	StageProspecting,
	StageDiscovery,
	StageQualification,
	StageEvaluation,
	StageNegotiation,
}

// allowedTransitions is the full transition table. Forward movement is one
// step at a time; stalled is reachable from every active stage and may
// resume anywhere active; terminal stages have no outgoing transitions.
var allowedTransitions = map[DealStage][]DealStage{
	StageProspecting:   {StageDiscovery, StageStalled},
	StageDiscovery:     {StageQualification, StageStalled},
	StageQualification: {StageEvaluation, StageStalled},
	StageEvaluation:    {StageNegotiation, StageStalled},
	StageNegotiation:   {StageClosedWon, StageClosedLost, StageStalled},
	StageClosedWon:     {},
	StageClosedLost:    {},
	StageStalled:       {StageProspecting, StageDiscovery, StageQualification, StageEvaluation, StageNegotiation},
}

// IsKnownStage reports whether the stage is part of the pipeline model.
func IsKnownStage(stage DealStage) bool {
	_, ok := allowedTransitions[stage]
	return ok
}

// IsTerminal reports whether the stage freezes further stage mutation.
// The conversation record itself persists for analytics.
func (s DealStage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// PipelineIndex returns the stage's position in the forward pipeline, or
// -1 for stalled/terminal stages.
func PipelineIndex(stage DealStage) int {
	for i, s := range pipelineOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// NextPipelineStage returns the single natural next stage in pipeline order.
// Negotiation, stalled, and terminal stages have no natural next stage.
func NextPipelineStage(stage DealStage) (DealStage, bool) {
	idx := PipelineIndex(stage)
	if idx < 0 || idx >= len(pipelineOrder)-1 {
		return "", false
	}
	return pipelineOrder[idx+1], true
}

// StepsForward returns how many pipeline steps separate from and to, when
// both are active pipeline stages and to is ahead of from. Otherwise 0.
func StepsForward(from, to DealStage) int {
	fromIdx, toIdx := PipelineIndex(from), PipelineIndex(to)
	if fromIdx < 0 || toIdx < 0 || toIdx <= fromIdx {
		return 0
	}
	return toIdx - fromIdx
}

// InvalidStageTransitionError is raised when a stage write violates the
// transition table. It carries the legal targets for diagnostics.
type InvalidStageTransitionError struct {
	From    DealStage
	To      DealStage
	Allowed []DealStage
}

func (e *InvalidStageTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition %s -> %s (allowed: %v)", e.From, e.To, e.Allowed)
}

// ValidateTransition checks a stage change against the transition table.
// Same-stage is always a permitted no-op. Violations return a typed
// *InvalidStageTransitionError; all other changes return nil.
func ValidateTransition(from, to DealStage) error {
	if from == to {
		return nil
	}

	allowed := allowedTransitions[from]
	for _, target := range allowed {
		if target == to {
			return nil
		}
	}

	return &InvalidStageTransitionError{From: from, To: to, Allowed: allowed}
}
