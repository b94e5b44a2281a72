package escalation

import (
	"context"
	"fmt"
	"strings"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/logger"

	"github.com/google/uuid"
)

const maxExcerpts = 5

// Completer is the narrow completion capability the engine consumes. Any
// failure degrades to a canned recommendation; it is never propagated.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// rule pairs a trigger predicate with its canned explanation. Rules are
// evaluated strictly in slice order and the first match wins, regardless of
// how many later rules would also fire.
type rule struct {
	trigger string
	matches func(state *domain.Conversation, message string) bool
	why     func(state *domain.Conversation) string
}

// Engine evaluates the ordered escalation rules.
type Engine struct {
	cfg       tuning.Escalation
	rules     []rule
	completer Completer
	log       *logger.Logger
}

// New creates an escalation engine with the given trigger configuration.
func New(cfg tuning.Escalation, completer Completer, log *logger.Logger) *Engine {
	e := &Engine{cfg: cfg, completer: completer, log: log}
	e.rules = []rule{
		{
			trigger: TriggerCustomerRequest,
			matches: e.matchesCustomerRequest,
			why: func(*domain.Conversation) string {
				return "The customer explicitly asked to speak with a person. Automated handling stops immediately when that happens."
			},
		},
		{
			trigger: TriggerHighStakes,
			matches: e.matchesHighStakes,
			why: func(state *domain.Conversation) string {
				return fmt.Sprintf("The deal is in %s and the latest message touches commercial terms. Late-stage commercial topics belong with a human rep.", state.Stage)
			},
		},
		{
			trigger: TriggerConfidenceThreshold,
			matches: func(state *domain.Conversation, _ string) bool {
				return state.ConfidenceScore < e.cfg.ConfidenceFloor
			},
			why: func(state *domain.Conversation) string {
				return fmt.Sprintf("Agent confidence dropped to %.2f, below the %.2f floor for autonomous handling.", state.ConfidenceScore, e.cfg.ConfidenceFloor)
			},
		},
		{
			trigger: TriggerComplexity,
			matches: e.matchesComplexity,
			why: func(state *domain.Conversation) string {
				return fmt.Sprintf("The buying committee is complex: %d decision criteria with multiple stakeholders identified. A human should own the coordination.", len(state.Qualification.MEDDIC.DecisionCriteria.Values))
			},
		},
	}
	return e
}

// Evaluate runs the rules in priority order against the state and the
// latest inbound message. Nil means no trigger fired.
func (e *Engine) Evaluate(ctx context.Context, state *domain.Conversation, latestMessage string) *Report {
	for _, r := range e.rules {
		if !r.matches(state, latestMessage) {
			continue
		}

		report := e.buildReport(ctx, state, r)
		if e.log != nil {
			e.log.DecisionEvent("escalation", r.trigger,
				"tenantId", state.TenantID,
				"contactId", state.ContactID,
				"stage", string(state.Stage),
			)
		}
		return report
	}
	return nil
}

func (e *Engine) matchesCustomerRequest(_ *domain.Conversation, message string) bool {
	folded := strings.ToLower(message)
	for _, phrase := range e.cfg.CustomerRequestPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

func (e *Engine) matchesHighStakes(state *domain.Conversation, message string) bool {
	if state.Stage != domain.StageNegotiation && state.Stage != domain.StageEvaluation {
		return false
	}
	folded := strings.ToLower(message)
	for _, keyword := range e.cfg.HighStakesKeywords {
		if strings.Contains(folded, keyword) {
			return true
		}
	}
	return false
}

func (e *Engine) matchesComplexity(state *domain.Conversation, _ string) bool {
	q := state.Qualification
	if len(q.MEDDIC.DecisionCriteria.Values) < e.cfg.ComplexityCriteriaMin {
		return false
	}

	players := 0
	if q.MEDDIC.EconomicBuyer.Identified {
		players++
	}
	if q.MEDDIC.Champion.Identified {
		players++
	}
	if q.BANT.Authority.Identified {
		players++
	}
	return players >= e.cfg.ComplexityPlayersMin
}

func (e *Engine) buildReport(ctx context.Context, state *domain.Conversation, r rule) *Report {
	report := &Report{
		EscalationID:         uuid.New(),
		TenantID:             state.TenantID,
		AccountID:            state.AccountID,
		ContactID:            state.ContactID,
		ContactName:          state.ContactName,
		DealStage:            string(state.Stage),
		EscalationTrigger:    r.trigger,
		ConfidenceScore:      state.ConfidenceScore,
		AccountContext:       accountContext(state),
		WhatAgentTried:       whatAgentTried(state),
		WhyEscalating:        r.why(state),
		ConversationExcerpts: state.Qualification.EvidenceExcerpts(maxExcerpts),
		NotificationTargets:  notificationTargets(state),
	}
	report.RecommendedNextAction = e.recommendNextAction(ctx, state, r.trigger)
	return report
}

func (e *Engine) recommendNextAction(ctx context.Context, state *domain.Conversation, trigger string) string {
	if e.completer != nil {
		system := "You are a sales manager. In two sentences, tell the rep taking over this conversation what to do first. Be concrete."
		user := fmt.Sprintf("Stage: %s. Trigger: %s. Qualification completion: %.0f%%. Context: %s",
			state.Stage, trigger, state.Qualification.CombinedCompletion()*100, accountContext(state))

		answer, err := e.completer.Complete(ctx, system, user)
		if err == nil && strings.TrimSpace(answer) != "" {
			return strings.TrimSpace(answer)
		}
		if err != nil && e.log != nil {
			e.log.DependencyFailure("completion", "canned escalation recommendation", err)
		}
	}

	return cannedRecommendations[trigger]
}

// cannedRecommendations are the deterministic fallbacks when the completion
// service is unavailable.
var cannedRecommendations = map[string]string{
	TriggerCustomerRequest:     "Call the contact back within one business hour; they asked for a person directly.",
	TriggerHighStakes:          "Review the latest message and own the commercial discussion personally; do not send automated replies.",
	TriggerConfidenceThreshold: "Read the recent thread and verify the agent's qualification notes before the next touch.",
	TriggerComplexity:          "Map the buying committee and schedule a multi-stakeholder call to align decision criteria.",
}

func accountContext(state *domain.Conversation) string {
	q := state.Qualification
	return fmt.Sprintf("%s (%s persona) in %s after %d interactions; BANT %.0f%%, MEDDIC %.0f%% complete.",
		state.ContactName, state.Persona, state.Stage, state.InteractionCount,
		q.BANT.CompletionScore()*100, q.MEDDIC.CompletionScore()*100)
}

func whatAgentTried(state *domain.Conversation) string {
	if state.InteractionCount == 0 {
		return "No automated outreach has happened yet."
	}
	channel := "email"
	if state.LastChannel != nil {
		channel = string(*state.LastChannel)
	}
	return fmt.Sprintf("Conducted %d automated interactions, most recently over %s, while accumulating qualification evidence.",
		state.InteractionCount, channel)
}

func notificationTargets(state *domain.Conversation) []string {
	targets := make([]string, 0, 2)
	if notify := state.Extensions.Notify; notify != nil {
		if notify.RepEmail != "" {
			targets = append(targets, notify.RepEmail)
		}
		if notify.ManagerEmail != "" {
			targets = append(targets, notify.ManagerEmail)
		}
	}
	return targets
}
