// Package progression evaluates whether the accumulated qualification
// evidence supports advancing a conversation to the next pipeline stage.
// The engine only ever proposes; applying the proposal is the caller's job
// and goes through the stage transition validator.
package progression

import (
	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"
)

// Engine proposes forward stage movement from evidence thresholds.
type Engine struct {
	cfg tuning.Progression
}

// New creates a progression engine with the given requirement table.
func New(cfg tuning.Progression) *Engine {
	return &Engine{cfg: cfg}
}

// Propose returns the next stage the evidence supports, or nil. The engine
// never proposes closing a deal (negotiation has no automated next step),
// never skips stages, and never proposes movement out of stalled or a
// terminal stage. A proposal that would fail transition validation is
// swallowed into nil: proposals are advisory and must not crash callers.
func (e *Engine) Propose(current domain.DealStage, q domain.Qualification, interactionCount int) *domain.DealStage {
	next, ok := domain.NextPipelineStage(current)
	if !ok {
		return nil
	}

	req, ok := e.cfg.Requirements[string(next)]
	if !ok {
		return nil
	}

	if q.BANT.CompletionScore() < req.MinBANTCompletion {
		return nil
	}
	if q.MEDDIC.CompletionScore() < req.MinMEDDICCompletion {
		return nil
	}
	if interactionCount < req.MinInteractions {
		return nil
	}
	for _, signal := range req.RequiredSignals {
		if !q.SignalIdentified(signal) {
			return nil
		}
	}

	if err := domain.ValidateTransition(current, next); err != nil {
		return nil
	}

	return &next
}
