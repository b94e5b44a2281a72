package coaching

import (
	"context"
	"errors"
	"testing"

	"salesflow_backend/internal/calibration"
	"salesflow_backend/internal/feedback"

	"github.com/google/uuid"
)

type fakeAggregates struct {
	funnel      []StageBucket
	total       int
	escalations []EscalationBucket
	outcomes    []OutcomeBucket
	err         error
}

func (f *fakeAggregates) StageFunnel(_ context.Context, _ uuid.UUID) ([]StageBucket, error) {
	return f.funnel, f.err
}

func (f *fakeAggregates) EscalationBreakdown(_ context.Context, _ uuid.UUID) (int, []EscalationBucket, error) {
	return f.total, f.escalations, f.err
}

func (f *fakeAggregates) OutcomeStats(_ context.Context, _ uuid.UUID) ([]OutcomeBucket, error) {
	return f.outcomes, f.err
}

type fakeCurves struct {
	curves map[string]*calibration.Curve
	err    error
}

func (f *fakeCurves) GetCurve(_ context.Context, _ uuid.UUID, actionType string) (*calibration.Curve, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.curves[actionType]; ok {
		return c, nil
	}
	return &calibration.Curve{ActionType: actionType, BrierScore: 0.25}, nil
}

type fakeFeedback struct {
	rows []feedback.SummaryRow
}

func (f *fakeFeedback) Summarize(_ context.Context, _ uuid.UUID) ([]feedback.SummaryRow, error) {
	return f.rows, nil
}

func TestOverviewAssemblesAllSections(t *testing.T) {
	aggregates := &fakeAggregates{
		funnel: []StageBucket{
			{Stage: "prospecting", Count: 6, AvgCompletion: 0.2, AvgConfidence: 0.5},
			{Stage: "negotiation", Count: 2, AvgCompletion: 0.7, AvgConfidence: 0.8},
		},
		total: 8,
		escalations: []EscalationBucket{
			{Reason: "customer_request", Count: 1},
			{Reason: "high_stakes", Count: 1},
		},
		outcomes: []OutcomeBucket{
			{OutcomeType: "email_engagement", Pending: 3, Positive: 2, Ambiguous: 1},
		},
	}
	curves := &fakeCurves{curves: map[string]*calibration.Curve{
		"advance_stage": {
			ActionType: "advance_stage",
			Points:     []calibration.CurvePoint{{BinIndex: 7, Midpoint: 0.75, ObservedRate: 0.6, SampleCount: 12}},
			BrierScore: 0.0225,
		},
	}}
	fb := &fakeFeedback{rows: []feedback.SummaryRow{
		{DecisionKind: "next_action", Source: "inline", Count: 4, AvgRating: 0.5},
	}}

	svc := NewService(aggregates, curves, fb)
	overview, err := svc.Overview(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}

	if overview.TotalConversations != 8 {
		t.Errorf("expected 8 conversations, got %d", overview.TotalConversations)
	}
	if overview.EscalationRate != 0.25 {
		t.Errorf("expected escalation rate 0.25, got %v", overview.EscalationRate)
	}
	if len(overview.StageFunnel) != 2 {
		t.Errorf("expected 2 funnel buckets, got %d", len(overview.StageFunnel))
	}
	if len(overview.Calibration) != len(trackedActionTypes) {
		t.Fatalf("expected %d calibration summaries, got %d", len(trackedActionTypes), len(overview.Calibration))
	}
	for _, summary := range overview.Calibration {
		if summary.ActionType == "advance_stage" {
			if summary.QualifyingBins != 1 {
				t.Errorf("expected 1 qualifying bin, got %d", summary.QualifyingBins)
			}
			if summary.BrierScore != 0.0225 {
				t.Errorf("unexpected brier score %v", summary.BrierScore)
			}
		}
	}
	if len(overview.Feedback) != 1 {
		t.Errorf("expected 1 feedback row, got %d", len(overview.Feedback))
	}
}

func TestOverviewZeroConversations(t *testing.T) {
	svc := NewService(&fakeAggregates{}, &fakeCurves{}, &fakeFeedback{})

	overview, err := svc.Overview(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if overview.EscalationRate != 0 {
		t.Errorf("expected zero escalation rate, got %v", overview.EscalationRate)
	}
}

func TestOverviewPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&fakeAggregates{err: boom}, &fakeCurves{}, &fakeFeedback{})

	if _, err := svc.Overview(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("expected aggregate error, got %v", err)
	}
}
