package calibration

import (
	"context"
	"math"

	domainevents "salesflow_backend/internal/events"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"

	"github.com/google/uuid"
)

// emptyCurveBrier is the score reported before any bin has enough samples.
// It matches the expected score of an uninformed coin-flip predictor.
const emptyCurveBrier = 0.25

// Store is the persistence surface the engine needs.
type Store interface {
	Increment(ctx context.Context, tenantID uuid.UUID, actionType string, bin int, confidence, outcomeValue float64) error
	List(ctx context.Context, tenantID uuid.UUID, actionType string) ([]Bin, error)
	ListActionTypes(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

// CurvePoint is one qualifying bin of the calibration curve. Midpoint is
// the bin's center, the nominal confidence the bin stands for.
type CurvePoint struct {
	BinIndex     int     `json:"bin_index"`
	Midpoint     float64 `json:"midpoint"`
	ObservedRate float64 `json:"observed_rate"`
	SampleCount  int     `json:"sample_count"`
}

// Curve is the calibration picture for one action type. Only bins with
// enough samples contribute; a thin curve can be empty.
type Curve struct {
	ActionType string       `json:"action_type"`
	Points     []CurvePoint `json:"points"`
	BrierScore float64      `json:"brier_score"`
}

// Adjustment directions.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

// Adjustment is a recommended confidence threshold change.
type Adjustment struct {
	ActionType   string  `json:"action_type"`
	Direction    string  `json:"direction"`
	Magnitude    float64 `json:"magnitude"`
	AvgGap       float64 `json:"avg_gap"`
	NewThreshold float64 `json:"new_threshold"`
}

// Engine maintains calibration bins and recommends threshold adjustments.
type Engine struct {
	store Store
	cfg   tuning.Calibration
	bus   events.Bus
	log   *logger.Logger
}

// NewEngine creates a calibration engine.
func NewEngine(store Store, cfg tuning.Calibration, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, bus: bus, log: log}
}

// Update folds one resolved outcome into its confidence bin. The outcome is
// binary; graded scores are an outcome-record concern and do not reach the
// bins. Out-of-range confidence is clamped, not rejected, so a caller that
// drifted past the unit interval still lands in an edge bin.
func (e *Engine) Update(ctx context.Context, tenantID uuid.UUID, actionType string, confidence float64, succeeded bool) error {
	confidence = clamp(confidence, 0, 1)
	value := 0.0
	if succeeded {
		value = 1.0
	}
	return e.store.Increment(ctx, tenantID, actionType, binIndex(confidence), confidence, value)
}

// GetCurve returns the calibration curve for an action type. Bins below the
// sample minimum are excluded so early noise does not look like signal.
func (e *Engine) GetCurve(ctx context.Context, tenantID uuid.UUID, actionType string) (*Curve, error) {
	bins, err := e.store.List(ctx, tenantID, actionType)
	if err != nil {
		return nil, err
	}

	curve := &Curve{ActionType: actionType, BrierScore: emptyCurveBrier}
	totalSamples := 0
	weightedSquares := 0.0

	for _, b := range bins {
		if b.SampleCount < e.cfg.MinBinSamples {
			continue
		}
		point := CurvePoint{
			BinIndex:     b.BinIndex,
			Midpoint:     binMidpoint(b.BinIndex),
			ObservedRate: b.ObservedRate(),
			SampleCount:  b.SampleCount,
		}
		curve.Points = append(curve.Points, point)
		totalSamples += b.SampleCount
		gap := point.Midpoint - point.ObservedRate
		weightedSquares += float64(b.SampleCount) * gap * gap
	}

	if totalSamples > 0 {
		curve.BrierScore = weightedSquares / float64(totalSamples)
	}
	return curve, nil
}

// gapEpsilon absorbs float representation error in the tolerance boundary.
const gapEpsilon = 1e-9

// thresholdBaseline is the neutral confidence multiplier adjustments shift
// away from. Adjustments are absolute, not cumulative, so one noisy cycle
// can never walk the threshold off a cliff.
const thresholdBaseline = 1.0

// CheckAndAdjust compares predicted confidence to observed outcomes for an
// action type and recommends a threshold change when they disagree by more
// than the tolerance. Nil means the calibration is acceptable or there is
// not enough data to judge.
func (e *Engine) CheckAndAdjust(ctx context.Context, tenantID uuid.UUID, actionType string) (*Adjustment, error) {
	curve, err := e.GetCurve(ctx, tenantID, actionType)
	if err != nil {
		return nil, err
	}
	if len(curve.Points) == 0 {
		return nil, nil
	}

	totalSamples := 0
	weightedGap := 0.0
	for _, p := range curve.Points {
		totalSamples += p.SampleCount
		weightedGap += float64(p.SampleCount) * (p.Midpoint - p.ObservedRate)
	}
	avgGap := weightedGap / float64(totalSamples)

	// The tolerance check is inclusive. Gaps like 0.75-0.6 do not come out
	// of float arithmetic as exactly 0.15, so compare with a small slack
	// rather than on the raw representation.
	if math.Abs(avgGap) <= e.cfg.GapTolerance+gapEpsilon {
		return nil, nil
	}

	magnitude := math.Min(math.Abs(avgGap), e.cfg.MaxAdjustment)
	direction := DirectionIncrease
	newThreshold := thresholdBaseline + magnitude
	if avgGap > 0 {
		// Predictions run hotter than reality; dampen the scores.
		direction = DirectionDecrease
		newThreshold = thresholdBaseline - magnitude
	}
	newThreshold = clamp(newThreshold, e.cfg.ThresholdFloor, e.cfg.ThresholdCeil)

	adj := &Adjustment{
		ActionType:   actionType,
		Direction:    direction,
		Magnitude:    magnitude,
		AvgGap:       avgGap,
		NewThreshold: newThreshold,
	}

	if e.log != nil {
		e.log.DecisionEvent("calibration", direction,
			"tenantId", tenantID,
			"actionType", actionType,
			"avgGap", avgGap,
			"newThreshold", newThreshold,
		)
	}
	if e.bus != nil {
		e.bus.Publish(ctx, domainevents.CalibrationAdjusted{
			BaseEvent:    events.NewBaseEvent(),
			TenantID:     tenantID,
			ActionType:   actionType,
			Direction:    direction,
			NewThreshold: newThreshold,
		})
	}
	return adj, nil
}

// CheckAll runs CheckAndAdjust across every action type the tenant has
// bins for.
func (e *Engine) CheckAll(ctx context.Context, tenantID uuid.UUID) ([]*Adjustment, error) {
	types, err := e.store.ListActionTypes(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var adjustments []*Adjustment
	for _, actionType := range types {
		adj, err := e.CheckAndAdjust(ctx, tenantID, actionType)
		if err != nil {
			return nil, err
		}
		if adj != nil {
			adjustments = append(adjustments, adj)
		}
	}
	return adjustments, nil
}

// binMidpoint returns the bin's center confidence.
func binMidpoint(index int) float64 {
	return (float64(index) + 0.5) / BinCount
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
