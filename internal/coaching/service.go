package coaching

import (
	"context"

	"salesflow_backend/internal/calibration"
	"salesflow_backend/internal/feedback"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Aggregates is the query surface the service reads from.
type Aggregates interface {
	StageFunnel(ctx context.Context, tenantID uuid.UUID) ([]StageBucket, error)
	EscalationBreakdown(ctx context.Context, tenantID uuid.UUID) (int, []EscalationBucket, error)
	OutcomeStats(ctx context.Context, tenantID uuid.UUID) ([]OutcomeBucket, error)
}

// CurveSource exposes calibration curves per action type.
type CurveSource interface {
	GetCurve(ctx context.Context, tenantID uuid.UUID, actionType string) (*calibration.Curve, error)
}

// FeedbackSource exposes the tenant feedback aggregates.
type FeedbackSource interface {
	Summarize(ctx context.Context, tenantID uuid.UUID) ([]feedback.SummaryRow, error)
}

// CalibrationSummary is the per-action-type calibration health snapshot.
type CalibrationSummary struct {
	ActionType     string  `json:"action_type"`
	BrierScore     float64 `json:"brier_score"`
	QualifyingBins int     `json:"qualifying_bins"`
}

// Overview is the full coaching dashboard payload.
type Overview struct {
	TotalConversations int                   `json:"total_conversations"`
	EscalationRate     float64               `json:"escalation_rate"`
	StageFunnel        []StageBucket         `json:"stage_funnel"`
	Escalations        []EscalationBucket    `json:"escalations"`
	Outcomes           []OutcomeBucket       `json:"outcomes"`
	Calibration        []CalibrationSummary  `json:"calibration"`
	Feedback           []feedback.SummaryRow `json:"feedback"`
}

// Service assembles the coaching overview from the other modules' data.
type Service struct {
	aggregates Aggregates
	curves     CurveSource
	feedback   FeedbackSource
}

// NewService creates a coaching service.
func NewService(aggregates Aggregates, curves CurveSource, feedbackSource FeedbackSource) *Service {
	return &Service{aggregates: aggregates, curves: curves, feedback: feedbackSource}
}

// trackedActionTypes are the pipeline actions that open outcome records,
// and therefore the ones with calibration bins worth summarizing.
var trackedActionTypes = []string{
	"send_email", "escalate", "advance_stage",
}

func trackedAction(actionType string) bool {
	for _, t := range trackedActionTypes {
		if t == actionType {
			return true
		}
	}
	return false
}

// Overview builds the dashboard payload for one tenant. The aggregates are
// independent reads, so they are gathered concurrently.
func (s *Service) Overview(ctx context.Context, tenantID uuid.UUID) (*Overview, error) {
	overview := &Overview{}
	var total int
	var escalations []EscalationBucket
	curves := make([]*calibration.Curve, len(trackedActionTypes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error {
		funnel, err := s.aggregates.StageFunnel(gctx, tenantID)
		overview.StageFunnel = funnel
		return err
	})
	g.Go(func() error {
		var err error
		total, escalations, err = s.aggregates.EscalationBreakdown(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		outcomes, err := s.aggregates.OutcomeStats(gctx, tenantID)
		overview.Outcomes = outcomes
		return err
	})
	g.Go(func() error {
		fb, err := s.feedback.Summarize(gctx, tenantID)
		overview.Feedback = fb
		return err
	})
	for i, actionType := range trackedActionTypes {
		i, actionType := i, actionType
		g.Go(func() error {
			curve, err := s.curves.GetCurve(gctx, tenantID, actionType)
			curves[i] = curve
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview.TotalConversations = total
	overview.Escalations = escalations

	escalated := 0
	for _, b := range escalations {
		escalated += b.Count
	}
	if total > 0 {
		overview.EscalationRate = float64(escalated) / float64(total)
	}

	for i, actionType := range trackedActionTypes {
		overview.Calibration = append(overview.Calibration, CalibrationSummary{
			ActionType:     actionType,
			BrierScore:     curves[i].BrierScore,
			QualifyingBins: len(curves[i].Points),
		})
	}

	return overview, nil
}

// Curve returns the full calibration curve for one action type.
func (s *Service) Curve(ctx context.Context, tenantID uuid.UUID, actionType string) (*calibration.Curve, error) {
	return s.curves.GetCurve(ctx, tenantID, actionType)
}
