// Package calibration measures how well the agent's confidence scores match
// observed outcomes, bucketed into ten confidence bins per action type, and
// recommends bounded threshold adjustments when the two drift apart.
package calibration

import (
	"math"

	"github.com/google/uuid"
)

// BinCount partitions [0, 1] into ten equal confidence buckets.
const BinCount = 10

// Bin is the running aggregate for one confidence bucket of one action type.
type Bin struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	ActionType    string    `json:"action_type"`
	BinIndex      int       `json:"bin_index"`
	SampleCount   int       `json:"sample_count"`
	ConfidenceSum float64   `json:"confidence_sum"`
	OutcomeSum    float64   `json:"outcome_sum"`
}

// AvgPredicted is the mean predicted confidence of the bin's samples.
func (b Bin) AvgPredicted() float64 {
	if b.SampleCount == 0 {
		return 0
	}
	return b.ConfidenceSum / float64(b.SampleCount)
}

// ObservedRate is the mean observed outcome value of the bin's samples.
func (b Bin) ObservedRate() float64 {
	if b.SampleCount == 0 {
		return 0
	}
	return b.OutcomeSum / float64(b.SampleCount)
}

// binIndex maps a confidence to its bucket. Buckets own their upper edge:
// 0.1 falls in bin 0, 0.11 in bin 1, 1.0 in bin 9. Zero also maps to bin 0.
func binIndex(confidence float64) int {
	idx := int(math.Ceil(confidence*BinCount)) - 1
	if idx < 0 {
		return 0
	}
	if idx >= BinCount {
		return BinCount - 1
	}
	return idx
}
