package domain

import (
	"strings"
	"time"
)

// MergeQualification folds a new qualification snapshot into the existing
// accumulated state. The merge never loses information: an identified
// dimension stays identified, evidence is appended rather than replaced,
// and confidence only rises. Callers must always merge pairwise into the
// running state; the operation is not associative across arbitrary inputs.
func MergeQualification(existing, incoming Qualification) Qualification {
	now := time.Now().UTC()

	merged := Qualification{
		BANT: BANT{
			Budget:    mergeSignal(existing.BANT.Budget, incoming.BANT.Budget),
			Authority: mergeSignal(existing.BANT.Authority, incoming.BANT.Authority),
			Need:      mergeSignal(existing.BANT.Need, incoming.BANT.Need),
			Timeline:  mergeSignal(existing.BANT.Timeline, incoming.BANT.Timeline),
		},
		MEDDIC: MEDDIC{
			Metrics:          mergeSignal(existing.MEDDIC.Metrics, incoming.MEDDIC.Metrics),
			EconomicBuyer:    mergeSignal(existing.MEDDIC.EconomicBuyer, incoming.MEDDIC.EconomicBuyer),
			DecisionCriteria: mergeListSignal(existing.MEDDIC.DecisionCriteria, incoming.MEDDIC.DecisionCriteria),
			DecisionProcess:  mergeSignal(existing.MEDDIC.DecisionProcess, incoming.MEDDIC.DecisionProcess),
			Pain:             mergeSignal(existing.MEDDIC.Pain, incoming.MEDDIC.Pain),
			Champion:         mergeSignal(existing.MEDDIC.Champion, incoming.MEDDIC.Champion),
		},
		OverallConfidence: maxFloat(existing.OverallConfidence, incoming.OverallConfidence),
		KeyInsights:       unionStrings(existing.KeyInsights, incoming.KeyInsights),
		LastUpdated:       &now,
	}

	// Next questions are guidance for the upcoming turn, not evidence.
	// The newer non-empty list always wins.
	if len(incoming.RecommendedNextQuestions) > 0 {
		merged.RecommendedNextQuestions = incoming.RecommendedNextQuestions
	} else {
		merged.RecommendedNextQuestions = existing.RecommendedNextQuestions
	}

	return merged
}

// mergeSignal resolves two snapshots of one scalar dimension.
// Identified beats unidentified; when both are identified the strictly
// higher confidence wins the value, ties keep the existing value.
func mergeSignal(existing, incoming Signal) Signal {
	merged := Signal{
		Identified: existing.Identified || incoming.Identified,
		Confidence: maxFloat(existing.Confidence, incoming.Confidence),
		Evidence:   mergeEvidence(existing.Evidence, incoming.Evidence),
	}

	switch {
	case incoming.Identified && !existing.Identified:
		merged.Value = incoming.Value
	case existing.Identified && !incoming.Identified:
		merged.Value = existing.Value
	case existing.Identified && incoming.Identified:
		if incoming.Confidence > existing.Confidence {
			merged.Value = incoming.Value
		} else {
			merged.Value = existing.Value
		}
	default:
		if existing.Value != nil {
			merged.Value = existing.Value
		} else {
			merged.Value = incoming.Value
		}
	}

	return merged
}

func mergeListSignal(existing, incoming ListSignal) ListSignal {
	return ListSignal{
		Identified: existing.Identified || incoming.Identified,
		Values:     unionStrings(existing.Values, incoming.Values),
		Evidence:   mergeEvidence(existing.Evidence, incoming.Evidence),
		Confidence: maxFloat(existing.Confidence, incoming.Confidence),
	}
}

// mergeEvidence appends new quotes to the running evidence trail with a
// " | " separator. Exact substrings are deduplicated; evidence is never
// overwritten.
func mergeEvidence(existing, incoming *string) *string {
	existingText := ""
	if existing != nil {
		existingText = *existing
	}
	incomingText := ""
	if incoming != nil {
		incomingText = *incoming
	}

	switch {
	case existingText == "" && incomingText == "":
		return nil
	case existingText == "":
		return &incomingText
	case incomingText == "" || strings.Contains(existingText, incomingText):
		return &existingText
	}

	combined := existingText + " | " + incomingText
	return &combined
}

// unionStrings merges two lists preserving first-seen order, no duplicates.
func unionStrings(existing, incoming []string) []string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
