package nextaction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/logger"
)

// Completer is the completion capability the planner consumes for the cases
// the rules cannot decide. Failures degrade to canned actions.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Engine plans next actions for a conversation.
type Engine struct {
	cfg       tuning.NextAction
	completer Completer
	log       *logger.Logger
	now       func() time.Time
}

// New creates a next-action engine.
func New(cfg tuning.NextAction, completer Completer, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, completer: completer, log: log, now: time.Now}
}

// Plan returns between one and MaxActions recommended actions, highest
// priority first. The rules run in a fixed order and the first one that
// applies decides; only conversations no rule covers reach the model.
func (e *Engine) Plan(ctx context.Context, state *domain.Conversation) []Action {
	if actions, decided := e.planByRule(state); decided {
		return actions
	}
	return e.planByModel(ctx, state)
}

func (e *Engine) planByRule(state *domain.Conversation) ([]Action, bool) {
	if state.Escalated {
		return []Action{{
			Type:            TypeEscalate,
			Description:     "Hand the conversation to the assigned rep and pause automated outreach.",
			Priority:        PriorityUrgent,
			SuggestedTiming: "immediately",
			Context:         "Conversation is flagged for human handling.",
		}}, true
	}

	if state.Stage.IsTerminal() {
		return []Action{{
			Type:        TypeWait,
			Description: "Deal is closed. No outreach needed.",
			Priority:    PriorityLow,
			Context:     fmt.Sprintf("Stage is %s.", state.Stage),
		}}, true
	}

	if state.InteractionCount == 0 {
		return []Action{{
			Type:            TypeSendEmail,
			Description:     "Send the initial outreach email introducing the offering.",
			Priority:        PriorityHigh,
			SuggestedTiming: "within 24 hours",
			Context:         "No contact has been made yet.",
		}}, true
	}

	if days := state.DaysSinceLastInteraction(e.now()); days > e.cfg.StaleAfterDays && state.Stage != domain.StageStalled {
		return []Action{{
			Type:            TypeFollowUp,
			Description:     fmt.Sprintf("Re-engage the contact; the thread has been quiet for %d days.", days),
			Priority:        PriorityHigh,
			SuggestedTiming: "today",
			Context:         "Last interaction is past the staleness threshold.",
		}}, true
	}

	earlyStage := state.Stage == domain.StageDiscovery || state.Stage == domain.StageQualification
	if earlyStage && state.Qualification.CombinedCompletion() < e.cfg.LowCompletionCeiling {
		return []Action{{
			Type:            TypeSendEmail,
			Description:     "Send a discovery email probing " + strings.Join(e.qualificationGaps(state), ", ") + ".",
			Priority:        PriorityMedium,
			SuggestedTiming: "within 2 days",
			Context:         "Qualification is too thin to advance the deal.",
		}}, true
	}

	return nil, false
}

// qualificationGaps names the signals worth probing next. BANT gaps come
// first; MEDDIC gaps pad the list only when fewer than three BANT dimensions
// are missing.
func (e *Engine) qualificationGaps(state *domain.Conversation) []string {
	gaps := state.Qualification.MissingBANTSignals()
	if len(gaps) < 3 {
		gaps = append(gaps, state.Qualification.MissingMEDDICSignals()...)
	}
	if len(gaps) > 3 {
		gaps = gaps[:3]
	}
	return gaps
}

const planSystemPrompt = `You plan the next moves for an automated sales assistant.
Reply with ONLY a JSON array of action objects, no prose. Each object has:
"type" (one of send_email, schedule_meeting, follow_up, escalate, wait),
"description", "priority" (urgent, high, medium, low), "suggested_timing", "context".`

func (e *Engine) planByModel(ctx context.Context, state *domain.Conversation) []Action {
	if e.completer == nil {
		return e.fallbackActions(state)
	}

	user := fmt.Sprintf(
		"Stage: %s. Persona: %s. Interactions: %d. BANT completion: %.0f%%. MEDDIC completion: %.0f%%. Confidence: %.2f. Open questions: %s.",
		state.Stage, state.Persona, state.InteractionCount,
		state.Qualification.BANT.CompletionScore()*100,
		state.Qualification.MEDDIC.CompletionScore()*100,
		state.ConfidenceScore,
		strings.Join(state.Qualification.RecommendedNextQuestions, "; "),
	)

	answer, err := e.completer.Complete(ctx, planSystemPrompt, user)
	if err != nil {
		if e.log != nil {
			e.log.DependencyFailure("completion", "canned next actions", err)
		}
		return e.fallbackActions(state)
	}

	actions, err := parseActions(answer)
	if err != nil {
		if e.log != nil {
			e.log.DependencyFailure("completion", "canned next actions", err)
		}
		return e.fallbackActions(state)
	}
	return e.sanitize(actions, state)
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseActions decodes the model reply. Models wrap JSON in prose or code
// fences often enough that a bare unmarshal failure gets one retry against
// the first bracketed span in the text.
func parseActions(answer string) ([]Action, error) {
	var actions []Action
	if err := json.Unmarshal([]byte(answer), &actions); err == nil {
		return actions, nil
	}

	match := jsonArrayPattern.FindString(answer)
	if match == "" {
		return nil, fmt.Errorf("no JSON array in completion reply")
	}
	if err := json.Unmarshal([]byte(match), &actions); err != nil {
		return nil, fmt.Errorf("parse completion reply: %w", err)
	}
	return actions, nil
}

// sanitize drops malformed entries, normalizes priorities, and clamps the
// list length. An empty result after filtering falls back to canned actions.
func (e *Engine) sanitize(actions []Action, state *domain.Conversation) []Action {
	kept := make([]Action, 0, e.cfg.MaxActions)
	for _, a := range actions {
		if !validTypes[a.Type] || strings.TrimSpace(a.Description) == "" {
			continue
		}
		if !validPriority(a.Priority) {
			a.Priority = PriorityMedium
		}
		kept = append(kept, a)
		if len(kept) >= e.cfg.MaxActions {
			break
		}
	}
	if len(kept) == 0 {
		return e.fallbackActions(state)
	}
	return kept
}

// fallbackActions returns a deterministic stage-appropriate plan when the
// model is unavailable or its reply is unusable.
func (e *Engine) fallbackActions(state *domain.Conversation) []Action {
	switch state.Stage {
	case domain.StageProspecting, domain.StageDiscovery:
		return []Action{{
			Type:            TypeSendEmail,
			Description:     "Send a discovery email asking about current pain points and goals.",
			Priority:        PriorityMedium,
			SuggestedTiming: "within 2 days",
		}}
	case domain.StageQualification:
		return []Action{{
			Type:            TypeSendEmail,
			Description:     "Ask about budget ownership and decision timeline.",
			Priority:        PriorityMedium,
			SuggestedTiming: "within 2 days",
		}}
	case domain.StageEvaluation:
		return []Action{{
			Type:            TypeScheduleMeeting,
			Description:     "Propose a technical deep-dive with the evaluation team.",
			Priority:        PriorityHigh,
			SuggestedTiming: "this week",
		}}
	case domain.StageNegotiation:
		return []Action{{
			Type:            TypeFollowUp,
			Description:     "Check in on the proposal and offer to answer open questions.",
			Priority:        PriorityHigh,
			SuggestedTiming: "within 2 days",
		}}
	case domain.StageStalled:
		return []Action{{
			Type:            TypeFollowUp,
			Description:     "Send a re-engagement note with a new piece of relevant content.",
			Priority:        PriorityMedium,
			SuggestedTiming: "this week",
		}}
	default:
		return []Action{{
			Type:        TypeWait,
			Description: "No action needed.",
			Priority:    PriorityLow,
		}}
	}
}
