// Package service orchestrates the conversation pipeline: each inbound
// interaction is extracted, merged, checked for stage progression and
// escalation, and answered with a plan of next actions.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/conversation/transport"
	"salesflow_backend/internal/escalation"
	domainevents "salesflow_backend/internal/events"
	"salesflow_backend/internal/nextaction"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/internal/progression"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"
	"salesflow_backend/platform/phone"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error)
	GetByContact(ctx context.Context, tenantID, accountID, contactID uuid.UUID) (*domain.Conversation, error)
	Update(ctx context.Context, conv *domain.Conversation) error
	List(ctx context.Context, tenantID uuid.UUID, stage *domain.DealStage, limit, offset int) ([]*domain.Conversation, error)
}

// Extractor pulls qualification signals out of one message. A nil extractor
// or a failing one degrades to processing without new signals.
type Extractor interface {
	Extract(ctx context.Context, conv *domain.Conversation, message string) (*domain.Qualification, error)
}

// OutcomeOpener opens pending outcome records for confidence-bearing
// decisions.
type OutcomeOpener interface {
	Open(ctx context.Context, tenantID, conversationID uuid.UUID, actionType string, actionID *uuid.UUID, outcomeType string, confidence float64, metadata map[string]any) (*outcome.Record, error)
}

// actionAdvanceStage labels the automated stage advancement decision on the
// outcome records that score it. The other tracked actions reuse the
// planner's action type names.
const actionAdvanceStage = "advance_stage"

// Service runs the conversation pipeline.
type Service struct {
	store       Store
	extractor   Extractor
	progression *progression.Engine
	escalation  *escalation.Engine
	planner     *nextaction.Engine
	outcomes    OutcomeOpener
	publisher   escalation.Publisher
	bus         events.Bus
	log         *logger.Logger
	now         func() time.Time
}

// New creates the conversation service.
func New(
	store Store,
	extractor Extractor,
	progressionEngine *progression.Engine,
	escalationEngine *escalation.Engine,
	planner *nextaction.Engine,
	outcomes OutcomeOpener,
	publisher escalation.Publisher,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	if publisher == nil {
		publisher = escalation.NopPublisher{}
	}
	return &Service{
		store:       store,
		extractor:   extractor,
		progression: progressionEngine,
		escalation:  escalationEngine,
		planner:     planner,
		outcomes:    outcomes,
		publisher:   publisher,
		bus:         bus,
		log:         log,
		now:         time.Now,
	}
}

// Result is the decision package ProcessInteraction returns.
type Result struct {
	Conversation *domain.Conversation
	StageChanged bool
	Escalation   *escalation.Report
	NextActions  []nextaction.Action
}

// ProcessInteraction runs the full pipeline for one inbound message. The
// conversation is created lazily on first contact. Extraction and outcome
// tracking degrade on failure; state persistence does not.
func (s *Service) ProcessInteraction(ctx context.Context, tenantID uuid.UUID, req *transport.InteractionRequest) (*Result, error) {
	conv, created, err := s.getOrCreate(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	s.applyContactDetails(conv, req)

	extracted := s.extract(ctx, conv, req.Message)
	if extracted != nil {
		conv.Qualification = domain.MergeQualification(conv.Qualification, *extracted)
		conv.ConfidenceScore = conv.Qualification.OverallConfidence
	}

	now := s.now()
	conv.InteractionCount++
	conv.LastInteraction = &now
	channel := domain.Channel(req.Channel)
	conv.LastChannel = &channel

	previousStage := conv.Stage
	stageChanged := false
	if proposed := s.progression.Propose(conv.Stage, conv.Qualification, conv.InteractionCount); proposed != nil {
		conv.Stage = *proposed
		stageChanged = true
	}

	var report *escalation.Report
	if !conv.Escalated && !conv.Stage.IsTerminal() {
		report = s.escalation.Evaluate(ctx, conv, req.Message)
		if report != nil {
			conv.Escalated = true
			reason := report.EscalationTrigger
			conv.EscalationReason = &reason
		}
	}

	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, domainevents.ConversationCreated{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       tenantID,
			ConversationID: conv.ID,
			AccountID:      conv.AccountID,
			ContactID:      conv.ContactID,
		})
	}
	if stageChanged {
		s.publish(ctx, domainevents.StageChanged{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       tenantID,
			ConversationID: conv.ID,
			FromStage:      string(previousStage),
			ToStage:        string(conv.Stage),
		})
		s.openOutcome(ctx, conv, actionAdvanceStage, nil, outcome.TypeDealProgression, map[string]any{
			outcome.MetaStageAtPrediction: string(conv.Stage),
		})
	}
	if report != nil {
		s.publisher.Publish(ctx, report)
		s.publish(ctx, domainevents.EscalationRaised{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       tenantID,
			ConversationID: conv.ID,
			EscalationID:   report.EscalationID,
			Trigger:        report.EscalationTrigger,
		})
		escalationID := report.EscalationID
		s.openOutcome(ctx, conv, nextaction.TypeEscalate, &escalationID, outcome.TypeEscalationResult, nil)
	}
	if channel == domain.ChannelEmail && !conv.Escalated && !conv.Stage.IsTerminal() {
		s.openOutcome(ctx, conv, nextaction.TypeSendEmail, nil, outcome.TypeEmailEngagement, map[string]any{
			outcome.MetaInteractionBaseline: conv.InteractionCount,
		})
	}

	s.publish(ctx, domainevents.InteractionProcessed{
		BaseEvent:      events.NewBaseEvent(),
		TenantID:       tenantID,
		ConversationID: conv.ID,
		Channel:        req.Channel,
		Stage:          string(conv.Stage),
		Escalated:      conv.Escalated,
	})

	return &Result{
		Conversation: conv,
		StageChanged: stageChanged,
		Escalation:   report,
		NextActions:  s.planner.Plan(ctx, conv),
	}, nil
}

func (s *Service) getOrCreate(ctx context.Context, tenantID uuid.UUID, req *transport.InteractionRequest) (conv *domain.Conversation, created bool, err error) {
	conv, err = s.store.GetByContact(ctx, tenantID, req.AccountID, req.ContactID)
	if err == nil {
		return conv, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, false, err
	}

	fresh := domain.NewConversation(tenantID, req.AccountID, req.ContactID)
	now := s.now()
	fresh.CreatedAt = now
	fresh.UpdatedAt = now
	if req.Persona != "" {
		fresh.Persona = domain.PersonaType(req.Persona)
	}
	if err := s.store.Create(ctx, &fresh); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// Lost the race to a concurrent first interaction.
			conv, err = s.store.GetByContact(ctx, tenantID, req.AccountID, req.ContactID)
			return conv, false, err
		}
		return nil, false, err
	}
	return &fresh, true, nil
}

func (s *Service) applyContactDetails(conv *domain.Conversation, req *transport.InteractionRequest) {
	if req.ContactEmail != "" {
		conv.ContactEmail = req.ContactEmail
	}
	if req.ContactName != "" {
		conv.ContactName = req.ContactName
	}
	if req.ContactPhone != "" {
		conv.ContactPhone = phone.NormalizeE164(req.ContactPhone)
	}
	if req.Persona != "" {
		conv.Persona = domain.PersonaType(req.Persona)
	}
}

// extract runs the extraction agent and swallows its failures. A message the
// agent cannot read still counts as an interaction.
func (s *Service) extract(ctx context.Context, conv *domain.Conversation, message string) *domain.Qualification {
	if s.extractor == nil {
		return nil
	}
	extracted, err := s.extractor.Extract(ctx, conv, message)
	if err != nil {
		if s.log != nil {
			s.log.DependencyFailure("extractor", "process without new signals", err)
		}
		return nil
	}
	return extracted
}

// openOutcome opens a pending outcome record. Tracking failures are logged
// and swallowed; losing a calibration sample must not fail the interaction.
func (s *Service) openOutcome(ctx context.Context, conv *domain.Conversation, actionType string, actionID *uuid.UUID, outcomeType string, metadata map[string]any) {
	if s.outcomes == nil {
		return
	}
	if _, err := s.outcomes.Open(ctx, conv.TenantID, conv.ID, actionType, actionID, outcomeType, conv.ConfidenceScore, metadata); err != nil {
		if s.log != nil {
			s.log.DependencyFailure("outcome tracker", "skip outcome record", err)
		}
	}
}

// Get returns one conversation.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	return s.store.GetByID(ctx, tenantID, id)
}

// GetByID satisfies the outcome sweeps' read interface.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	return s.store.GetByID(ctx, tenantID, id)
}

// List returns a tenant's conversations with optional stage filter.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, stageFilter string, limit, offset int) ([]*domain.Conversation, error) {
	var stage *domain.DealStage
	if stageFilter != "" {
		st := domain.DealStage(stageFilter)
		if !domain.IsKnownStage(st) {
			return nil, apperr.Validation("unknown stage filter")
		}
		stage = &st
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, tenantID, stage, limit, offset)
}

// PlanActions plans next actions for a conversation outside the interaction
// pipeline, for dashboard use.
func (s *Service) PlanActions(ctx context.Context, tenantID, id uuid.UUID) ([]nextaction.Action, error) {
	conv, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.planner.Plan(ctx, conv), nil
}

// OverrideStage applies a human-initiated stage change. The transition table
// still applies; humans cannot teleport a deal either.
func (s *Service) OverrideStage(ctx context.Context, tenantID, id uuid.UUID, target domain.DealStage, reason string) (*domain.Conversation, error) {
	if !domain.IsKnownStage(target) {
		return nil, apperr.Validation("unknown stage")
	}

	conv, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	previous := conv.Stage
	conv.Stage = target
	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}

	if previous != target {
		if s.log != nil {
			s.log.DecisionEvent("stage_override", string(target),
				"tenantId", tenantID,
				"conversationId", id,
				"from", string(previous),
				"reason", reason,
			)
		}
		s.publish(ctx, domainevents.StageChanged{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       tenantID,
			ConversationID: conv.ID,
			FromStage:      string(previous),
			ToStage:        string(target),
		})
	}
	return conv, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
