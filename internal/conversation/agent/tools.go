package agent

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"salesflow_backend/internal/conversation/domain"
)

// SignalInput is one extracted qualification signal as the model reports it.
type SignalInput struct {
	Identified bool    `json:"identified" description:"Whether the message gives real evidence for this signal"`
	Value      string  `json:"value" description:"Short summary of the signal, e.g. 'Q3 budget of $50k approved'"`
	Evidence   string  `json:"evidence" description:"Verbatim quote from the message supporting the signal"`
	Confidence float64 `json:"confidence" description:"How sure you are, 0 to 1"`
}

// ListSignalInput is a signal whose value is a list, like decision criteria.
type ListSignalInput struct {
	Identified bool     `json:"identified" description:"Whether the message gives real evidence for this signal"`
	Values     []string `json:"values" description:"The individual items, e.g. the named decision criteria"`
	Evidence   string   `json:"evidence" description:"Verbatim quote from the message supporting the signal"`
	Confidence float64  `json:"confidence" description:"How sure you are, 0 to 1"`
}

// SaveQualificationInput is the full tool payload.
type SaveQualificationInput struct {
	Budget           SignalInput     `json:"budget"`
	Authority        SignalInput     `json:"authority"`
	Need             SignalInput     `json:"need"`
	Timeline         SignalInput     `json:"timeline"`
	Metrics          SignalInput     `json:"metrics"`
	EconomicBuyer    SignalInput     `json:"economic_buyer"`
	DecisionCriteria ListSignalInput `json:"decision_criteria"`
	DecisionProcess  SignalInput     `json:"decision_process"`
	Pain             SignalInput     `json:"pain"`
	Champion         SignalInput     `json:"champion"`

	OverallConfidence        float64  `json:"overall_confidence" description:"Confidence in the qualification picture as a whole, 0 to 1"`
	KeyInsights              []string `json:"key_insights" description:"Notable facts from this message worth remembering"`
	RecommendedNextQuestions []string `json:"recommended_next_questions" description:"Questions that would fill the biggest qualification gaps"`
}

// SaveQualificationOutput acknowledges the tool call.
type SaveQualificationOutput struct {
	Success bool `json:"success"`
}

func createSaveQualificationTool(deps *toolDeps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "SaveQualification",
		Description: "Saves the qualification signals extracted from the message. Call this ONCE with every signal the message supports, including evidence quotes.",
	}, func(ctx tool.Context, input SaveQualificationInput) (SaveQualificationOutput, error) {
		deps.save(toQualification(input))
		return SaveQualificationOutput{Success: true}, nil
	})
}

func toQualification(input SaveQualificationInput) *domain.Qualification {
	q := &domain.Qualification{
		BANT: domain.BANT{
			Budget:    toSignal(input.Budget),
			Authority: toSignal(input.Authority),
			Need:      toSignal(input.Need),
			Timeline:  toSignal(input.Timeline),
		},
		MEDDIC: domain.MEDDIC{
			Metrics:          toSignal(input.Metrics),
			EconomicBuyer:    toSignal(input.EconomicBuyer),
			DecisionCriteria: toListSignal(input.DecisionCriteria),
			DecisionProcess:  toSignal(input.DecisionProcess),
			Pain:             toSignal(input.Pain),
			Champion:         toSignal(input.Champion),
		},
		OverallConfidence:        clamp01(input.OverallConfidence),
		KeyInsights:              input.KeyInsights,
		RecommendedNextQuestions: input.RecommendedNextQuestions,
	}
	return q
}

func toSignal(in SignalInput) domain.Signal {
	s := domain.Signal{
		Identified: in.Identified,
		Confidence: clamp01(in.Confidence),
	}
	if in.Value != "" {
		v := in.Value
		s.Value = &v
	}
	if in.Evidence != "" {
		e := in.Evidence
		s.Evidence = &e
	}
	return s
}

func toListSignal(in ListSignalInput) domain.ListSignal {
	s := domain.ListSignal{
		Identified: in.Identified,
		Values:     in.Values,
		Confidence: clamp01(in.Confidence),
	}
	if in.Evidence != "" {
		e := in.Evidence
		s.Evidence = &e
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
