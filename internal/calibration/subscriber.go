package calibration

import (
	"context"

	domainevents "salesflow_backend/internal/events"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/platform/events"
)

// SubscribeToOutcomes feeds resolved outcomes into the calibration bins as
// binary results: positive counts for the prediction, negative and expired
// count against it. Ambiguous resolutions carry no calibration signal and
// are skipped; graded outcome scores stay on the record and never reach the
// bins.
func SubscribeToOutcomes(bus events.Bus, engine *Engine) {
	bus.Subscribe(domainevents.OutcomeResolvedName, events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			resolved, ok := event.(domainevents.OutcomeResolved)
			if !ok {
				return nil
			}
			switch resolved.Status {
			case outcome.StatusPositive:
				return engine.Update(ctx, resolved.TenantID, resolved.ActionType, resolved.PredictedConfidence, true)
			case outcome.StatusNegative, outcome.StatusExpired:
				return engine.Update(ctx, resolved.TenantID, resolved.ActionType, resolved.PredictedConfidence, false)
			}
			return nil
		},
	))
}
