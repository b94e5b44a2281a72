package domain

import "time"

// Signal is one qualification dimension: whether the fact is known, its
// free-text value, the verbatim quote supporting it, and how confident the
// extractor was.
type Signal struct {
	Identified bool    `json:"identified"`
	Value      *string `json:"value,omitempty"`
	Evidence   *string `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ListSignal is a qualification dimension whose value is a list of strings
// (decision criteria). Union semantics on merge, first-seen order.
type ListSignal struct {
	Identified bool     `json:"identified"`
	Values     []string `json:"values,omitempty"`
	Evidence   *string  `json:"evidence,omitempty"`
	Confidence float64  `json:"confidence"`
}

// BANT holds the four-dimension qualification group.
type BANT struct {
	Budget    Signal `json:"budget"`
	Authority Signal `json:"authority"`
	Need      Signal `json:"need"`
	Timeline  Signal `json:"timeline"`
}

// CompletionScore is the fraction of BANT dimensions identified.
func (b BANT) CompletionScore() float64 {
	identified := 0
	for _, s := range []Signal{b.Budget, b.Authority, b.Need, b.Timeline} {
		if s.Identified {
			identified++
		}
	}
	return float64(identified) / 4.0
}

// MEDDIC holds the six-dimension enterprise qualification group.
type MEDDIC struct {
	Metrics          Signal     `json:"metrics"`
	EconomicBuyer    Signal     `json:"economic_buyer"`
	DecisionCriteria ListSignal `json:"decision_criteria"`
	DecisionProcess  Signal     `json:"decision_process"`
	Pain             Signal     `json:"pain"`
	Champion         Signal     `json:"champion"`
}

// CompletionScore is the fraction of MEDDIC dimensions identified.
func (m MEDDIC) CompletionScore() float64 {
	identified := 0
	for _, s := range []Signal{m.Metrics, m.EconomicBuyer, m.DecisionProcess, m.Pain, m.Champion} {
		if s.Identified {
			identified++
		}
	}
	if m.DecisionCriteria.Identified {
		identified++
	}
	return float64(identified) / 6.0
}

// Qualification is the accumulated BANT/MEDDIC evidence for a conversation.
type Qualification struct {
	BANT                     BANT       `json:"bant"`
	MEDDIC                   MEDDIC     `json:"meddic"`
	OverallConfidence        float64    `json:"overall_confidence"`
	KeyInsights              []string   `json:"key_insights,omitempty"`
	RecommendedNextQuestions []string   `json:"recommended_next_questions,omitempty"`
	LastUpdated              *time.Time `json:"last_updated,omitempty"`
}

// NewQualification returns an empty qualification at the neutral 0.5
// confidence baseline.
func NewQualification() Qualification {
	return Qualification{OverallConfidence: 0.5}
}

// CombinedCompletion averages the BANT and MEDDIC completion scores.
func (q Qualification) CombinedCompletion() float64 {
	return (q.BANT.CompletionScore() + q.MEDDIC.CompletionScore()) / 2.0
}

// Canonical signal names used by stage requirements tables.
const (
	SignalBudget           = "budget"
	SignalAuthority        = "authority"
	SignalNeed             = "need"
	SignalTimeline         = "timeline"
	SignalMetrics          = "metrics"
	SignalEconomicBuyer    = "economic_buyer"
	SignalDecisionCriteria = "decision_criteria"
	SignalDecisionProcess  = "decision_process"
	SignalPain             = "pain"
	SignalChampion         = "champion"
)

// SignalIdentified reports whether the named signal is identified. Unknown
// signal names are fail-safe false, never an error; a tuning typo must not
// crash stage progression.
func (q Qualification) SignalIdentified(name string) bool {
	switch name {
	case SignalBudget:
		return q.BANT.Budget.Identified
	case SignalAuthority:
		return q.BANT.Authority.Identified
	case SignalNeed:
		return q.BANT.Need.Identified
	case SignalTimeline:
		return q.BANT.Timeline.Identified
	case SignalMetrics:
		return q.MEDDIC.Metrics.Identified
	case SignalEconomicBuyer:
		return q.MEDDIC.EconomicBuyer.Identified
	case SignalDecisionCriteria:
		return q.MEDDIC.DecisionCriteria.Identified
	case SignalDecisionProcess:
		return q.MEDDIC.DecisionProcess.Identified
	case SignalPain:
		return q.MEDDIC.Pain.Identified
	case SignalChampion:
		return q.MEDDIC.Champion.Identified
	default:
		return false
	}
}

// MissingBANTSignals lists the unidentified BANT dimensions in canonical order.
func (q Qualification) MissingBANTSignals() []string {
	var missing []string
	for _, name := range []string{SignalBudget, SignalAuthority, SignalNeed, SignalTimeline} {
		if !q.SignalIdentified(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// MissingMEDDICSignals lists the unidentified MEDDIC dimensions in canonical order.
func (q Qualification) MissingMEDDICSignals() []string {
	var missing []string
	for _, name := range []string{SignalMetrics, SignalEconomicBuyer, SignalDecisionCriteria, SignalDecisionProcess, SignalPain, SignalChampion} {
		if !q.SignalIdentified(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// EvidenceExcerpts collects up to limit non-empty evidence quotes across all
// dimensions, in a stable order. Used to build escalation reports.
func (q Qualification) EvidenceExcerpts(limit int) []string {
	sources := []*string{
		q.BANT.Budget.Evidence,
		q.BANT.Authority.Evidence,
		q.BANT.Need.Evidence,
		q.BANT.Timeline.Evidence,
		q.MEDDIC.Metrics.Evidence,
		q.MEDDIC.EconomicBuyer.Evidence,
		q.MEDDIC.DecisionCriteria.Evidence,
		q.MEDDIC.DecisionProcess.Evidence,
		q.MEDDIC.Pain.Evidence,
		q.MEDDIC.Champion.Evidence,
	}

	excerpts := make([]string, 0, limit)
	for _, src := range sources {
		if src == nil || *src == "" {
			continue
		}
		excerpts = append(excerpts, *src)
		if len(excerpts) >= limit {
			break
		}
	}
	return excerpts
}
