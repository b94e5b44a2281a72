// Package tuning holds the immutable configuration data the decision
// engines are constructed with: stage requirement tables, escalation phrase
// and keyword sets, next-action constants, outcome windows, and calibration
// constants. Defaults match the shipped policy; a YAML file can override
// them per deployment.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StageRequirements gates one forward pipeline step.
type StageRequirements struct {
	MinBANTCompletion   float64  `yaml:"min_bant_completion"`
	MinMEDDICCompletion float64  `yaml:"min_meddic_completion"`
	MinInteractions     int      `yaml:"min_interactions"`
	RequiredSignals     []string `yaml:"required_signals"`
}

// Progression holds the per-target-stage requirement table.
type Progression struct {
	Requirements map[string]StageRequirements `yaml:"requirements"`
}

// Escalation holds the trigger phrase/keyword sets and the confidence floor.
type Escalation struct {
	CustomerRequestPhrases []string `yaml:"customer_request_phrases"`
	HighStakesKeywords     []string `yaml:"high_stakes_keywords"`
	ConfidenceFloor        float64  `yaml:"confidence_floor"`
	ComplexityCriteriaMin  int      `yaml:"complexity_criteria_min"`
	ComplexityPlayersMin   int      `yaml:"complexity_players_min"`
}

// NextAction holds the rule-based fast path thresholds.
type NextAction struct {
	StaleAfterDays       int     `yaml:"stale_after_days"`
	LowCompletionCeiling float64 `yaml:"low_completion_ceiling"`
	MaxActions           int     `yaml:"max_actions"`
}

// Outcome holds the per-type resolution windows.
type Outcome struct {
	WindowHours map[string]int `yaml:"window_hours"`
}

// Calibration holds the recalibration constants.
type Calibration struct {
	MinBinSamples  int     `yaml:"min_bin_samples"`
	GapTolerance   float64 `yaml:"gap_tolerance"`
	MaxAdjustment  float64 `yaml:"max_adjustment"`
	ThresholdFloor float64 `yaml:"threshold_floor"`
	ThresholdCeil  float64 `yaml:"threshold_ceil"`
}

// Tuning aggregates all engine configuration.
type Tuning struct {
	Progression Progression `yaml:"progression"`
	Escalation  Escalation  `yaml:"escalation"`
	NextAction  NextAction  `yaml:"next_action"`
	Outcome     Outcome     `yaml:"outcome"`
	Calibration Calibration `yaml:"calibration"`
}

// Defaults returns the shipped policy tables.
func Defaults() Tuning {
	return Tuning{
		Progression: Progression{
			Requirements: map[string]StageRequirements{
				"discovery": {
					RequiredSignals: []string{"need"},
				},
				"qualification": {
					MinBANTCompletion: 0.25,
					// Deliberately just under 1/6 so exactly one MEDDIC
					// signal qualifies. Do not recompute symbolically.
					MinMEDDICCompletion: 0.16,
					MinInteractions:     2,
					RequiredSignals:     []string{"need", "pain"},
				},
				"evaluation": {
					MinBANTCompletion:   0.50,
					MinMEDDICCompletion: 0.33,
					MinInteractions:     3,
					RequiredSignals:     []string{"budget", "authority"},
				},
				"negotiation": {
					MinBANTCompletion:   0.75,
					MinMEDDICCompletion: 0.50,
					MinInteractions:     4,
					RequiredSignals:     []string{"economic_buyer", "decision_criteria"},
				},
			},
		},
		Escalation: Escalation{
			CustomerRequestPhrases: []string{
				"speak to someone",
				"talk to a human",
				"talk to someone",
				"call me",
				"schedule a call",
				"real person",
				"speak with a person",
				"human being",
			},
			HighStakesKeywords: []string{
				"pricing", "contract", "negotiate", "competitor",
				"budget approval", "executive", "legal", "procurement",
				"discount", "renewal",
			},
			ConfidenceFloor:       0.7,
			ComplexityCriteriaMin: 3,
			ComplexityPlayersMin:  2,
		},
		NextAction: NextAction{
			StaleAfterDays:       7,
			LowCompletionCeiling: 0.3,
			MaxActions:           3,
		},
		Outcome: Outcome{
			WindowHours: map[string]int{
				"email_engagement":  24,
				"meeting_outcome":   168,
				"escalation_result": 168,
				"deal_progression":  720,
			},
		},
		Calibration: Calibration{
			MinBinSamples:  10,
			GapTolerance:   0.15,
			MaxAdjustment:  0.10,
			ThresholdFloor: 0.5,
			ThresholdCeil:  1.5,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path means defaults only.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	return t, nil
}

// Window returns the resolution window for an outcome type. Unknown types
// fall back to 24h rather than erroring.
func (o Outcome) Window(outcomeType string) time.Duration {
	hours, ok := o.WindowHours[outcomeType]
	if !ok {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}
