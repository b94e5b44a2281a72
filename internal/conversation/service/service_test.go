package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/conversation/transport"
	"salesflow_backend/internal/escalation"
	"salesflow_backend/internal/nextaction"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/internal/progression"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	byID map[uuid.UUID]*domain.Conversation
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]*domain.Conversation)}
}

func (f *fakeStore) Create(_ context.Context, conv *domain.Conversation) error {
	for _, existing := range f.byID {
		if existing.TenantID == conv.TenantID && existing.AccountID == conv.AccountID && existing.ContactID == conv.ContactID {
			return apperr.Conflict("conversation already exists for this contact")
		}
	}
	cp := *conv
	f.byID[conv.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	conv, ok := f.byID[id]
	if !ok || conv.TenantID != tenantID {
		return nil, apperr.NotFound("conversation not found")
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeStore) GetByContact(_ context.Context, tenantID, accountID, contactID uuid.UUID) (*domain.Conversation, error) {
	for _, conv := range f.byID {
		if conv.TenantID == tenantID && conv.AccountID == accountID && conv.ContactID == contactID {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("conversation not found")
}

func (f *fakeStore) Update(_ context.Context, conv *domain.Conversation) error {
	existing, ok := f.byID[conv.ID]
	if !ok {
		return apperr.NotFound("conversation not found")
	}
	if err := domain.ValidateTransition(existing.Stage, conv.Stage); err != nil {
		return apperr.Conflict(err.Error())
	}
	conv.UpdatedAt = time.Now()
	cp := *conv
	f.byID[conv.ID] = &cp
	return nil
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, stage *domain.DealStage, _, _ int) ([]*domain.Conversation, error) {
	var out []*domain.Conversation
	for _, conv := range f.byID {
		if conv.TenantID != tenantID {
			continue
		}
		if stage != nil && conv.Stage != *stage {
			continue
		}
		cp := *conv
		out = append(out, &cp)
	}
	return out, nil
}

type fakeExtractor struct {
	result *domain.Qualification
	err    error
}

func (f *fakeExtractor) Extract(context.Context, *domain.Conversation, string) (*domain.Qualification, error) {
	return f.result, f.err
}

type fakeOutcomes struct {
	opened  []string // outcome types, in open order
	actions []string
}

func (f *fakeOutcomes) Open(_ context.Context, _, _ uuid.UUID, actionType string, _ *uuid.UUID, outcomeType string, _ float64, _ map[string]any) (*outcome.Record, error) {
	f.opened = append(f.opened, outcomeType)
	f.actions = append(f.actions, actionType)
	return &outcome.Record{ID: uuid.New(), ActionType: actionType, OutcomeType: outcomeType}, nil
}

func newTestService(store *fakeStore, extractor Extractor, outcomes OutcomeOpener) *Service {
	cfg := tuning.Defaults()
	return New(
		store,
		extractor,
		progression.New(cfg.Progression),
		escalation.New(cfg.Escalation, nil, nil),
		nextaction.New(cfg.NextAction, nil, nil),
		outcomes,
		nil,
		nil,
		nil,
	)
}

func signal(value string, confidence float64) domain.Signal {
	return domain.Signal{Identified: true, Value: &value, Confidence: confidence}
}

// confidentExtractor returns no new signals but enough model confidence to
// keep the conversation below the escalation radar.
func confidentExtractor() *fakeExtractor {
	return &fakeExtractor{result: &domain.Qualification{OverallConfidence: 0.8}}
}

func emailRequest(accountID, contactID uuid.UUID, message string) *transport.InteractionRequest {
	return &transport.InteractionRequest{
		AccountID:   accountID,
		ContactID:   contactID,
		ContactName: "Ade Okafor",
		Channel:     "email",
		Message:     message,
	}
}

func TestProcessInteractionCreatesConversationLazily(t *testing.T) {
	store := newFakeStore()
	outcomes := &fakeOutcomes{}
	s := newTestService(store, confidentExtractor(), outcomes)
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "Hi, tell me more."))
	if err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}

	conv := result.Conversation
	if conv.Stage != domain.StageProspecting {
		t.Fatalf("stage = %s, want prospecting", conv.Stage)
	}
	if result.Escalation != nil {
		t.Fatalf("unexpected escalation: %+v", result.Escalation)
	}
	if conv.InteractionCount != 1 {
		t.Fatalf("interaction count = %d, want 1", conv.InteractionCount)
	}
	if conv.LastChannel == nil || *conv.LastChannel != domain.ChannelEmail {
		t.Fatalf("last channel = %v", conv.LastChannel)
	}
	if len(result.NextActions) == 0 {
		t.Fatal("expected at least one next action")
	}
}

func TestExtractionFailureDoesNotDropInteraction(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeExtractor{err: apperr.Dependency("model down", nil)}, &fakeOutcomes{})
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	first, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "hello"))
	if err != nil {
		t.Fatalf("first interaction: %v", err)
	}
	second, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "hello again"))
	if err != nil {
		t.Fatalf("second interaction: %v", err)
	}
	if first.Conversation.ID != second.Conversation.ID {
		t.Fatal("interactions should share one conversation")
	}
	if second.Conversation.InteractionCount != 2 {
		t.Fatalf("interaction count = %d, want 2", second.Conversation.InteractionCount)
	}
}

func TestStageAdvancesWhenQualificationSupportsIt(t *testing.T) {
	store := newFakeStore()
	extracted := &domain.Qualification{
		BANT:              domain.BANT{Need: signal("needs reporting automation", 0.9)},
		OverallConfidence: 0.8,
	}
	outcomes := &fakeOutcomes{}
	s := newTestService(store, &fakeExtractor{result: extracted}, outcomes)
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "We need reporting automation."))
	if err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}
	if !result.StageChanged || result.Conversation.Stage != domain.StageDiscovery {
		t.Fatalf("stage = %s changed=%v, want discovery", result.Conversation.Stage, result.StageChanged)
	}

	var sawProgression bool
	for _, opened := range outcomes.opened {
		if opened == outcome.TypeDealProgression {
			sawProgression = true
		}
	}
	if !sawProgression {
		t.Fatalf("stage change should open a deal progression outcome, opened %v", outcomes.opened)
	}
}

func TestEscalationFlagsConversation(t *testing.T) {
	store := newFakeStore()
	outcomes := &fakeOutcomes{}
	s := newTestService(store, &fakeExtractor{err: errors.New("down")}, outcomes)
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "Please have someone call me."))
	if err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}
	if result.Escalation == nil || result.Escalation.EscalationTrigger != escalation.TriggerCustomerRequest {
		t.Fatalf("escalation = %+v", result.Escalation)
	}
	conv := result.Conversation
	if !conv.Escalated || conv.EscalationReason == nil || *conv.EscalationReason != escalation.TriggerCustomerRequest {
		t.Fatalf("conversation = escalated=%v reason=%v", conv.Escalated, conv.EscalationReason)
	}
	if len(result.NextActions) != 1 || result.NextActions[0].Type != nextaction.TypeEscalate {
		t.Fatalf("next actions = %+v", result.NextActions)
	}
	if len(outcomes.opened) != 1 || outcomes.opened[0] != outcome.TypeEscalationResult {
		t.Fatalf("opened = %v, want one escalation_result", outcomes.opened)
	}
	if outcomes.actions[0] != nextaction.TypeEscalate {
		t.Fatalf("action = %s, want escalate", outcomes.actions[0])
	}
}

func TestEscalatedConversationIsNotReEscalated(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeExtractor{err: errors.New("down")}, &fakeOutcomes{})
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	if _, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "call me please")); err != nil {
		t.Fatalf("first interaction: %v", err)
	}
	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "call me again please"))
	if err != nil {
		t.Fatalf("second interaction: %v", err)
	}
	if result.Escalation != nil {
		t.Fatalf("second interaction should not re-escalate, got %+v", result.Escalation)
	}
}

func TestLowConfidenceEscalates(t *testing.T) {
	store := newFakeStore()
	extracted := &domain.Qualification{OverallConfidence: 0.4}
	s := newTestService(store, &fakeExtractor{result: extracted}, &fakeOutcomes{})
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "Thanks, looking it over."))
	if err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}
	if result.Escalation == nil || result.Escalation.EscalationTrigger != escalation.TriggerConfidenceThreshold {
		t.Fatalf("escalation = %+v, want confidence_threshold", result.Escalation)
	}
}

func TestEmailOpensEngagementOutcome(t *testing.T) {
	store := newFakeStore()
	outcomes := &fakeOutcomes{}
	s := newTestService(store, confidentExtractor(), outcomes)
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	if _, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "hello")); err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}
	if len(outcomes.opened) != 1 || outcomes.opened[0] != outcome.TypeEmailEngagement {
		t.Fatalf("opened = %v, want one email_engagement", outcomes.opened)
	}
	if outcomes.actions[0] != nextaction.TypeSendEmail {
		t.Fatalf("action = %s, want send_email", outcomes.actions[0])
	}
}

func TestOverrideStageRespectsTransitionTable(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, confidentExtractor(), &fakeOutcomes{})
	tenant, account, contact := uuid.New(), uuid.New(), uuid.New()

	result, err := s.ProcessInteraction(context.Background(), tenant, emailRequest(account, contact, "hello"))
	if err != nil {
		t.Fatalf("ProcessInteraction: %v", err)
	}
	id := result.Conversation.ID

	if _, err := s.OverrideStage(context.Background(), tenant, id, domain.StageNegotiation, "skip ahead"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("skipping stages: err = %v, want conflict", err)
	}

	conv, err := s.OverrideStage(context.Background(), tenant, id, domain.StageDiscovery, "manual review")
	if err != nil {
		t.Fatalf("valid override: %v", err)
	}
	if conv.Stage != domain.StageDiscovery {
		t.Fatalf("stage = %s, want discovery", conv.Stage)
	}
}

func TestListRejectsUnknownStageFilter(t *testing.T) {
	s := newTestService(newFakeStore(), nil, nil)

	if _, err := s.List(context.Background(), uuid.New(), "limbo", 10, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
