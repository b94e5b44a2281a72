package outcome

import (
	"context"
	"fmt"
	"time"

	"salesflow_backend/internal/conversation/domain"
	domainevents "salesflow_backend/internal/events"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Metadata keys the sweeps read back.
const (
	MetaInteractionBaseline = "interaction_count_at_send"
	MetaStageAtPrediction   = "stage_at_prediction"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Record, error)
	Resolve(ctx context.Context, tenantID, id uuid.UUID, status string, score *float64, signalSource string, resolvedAt time.Time) (*Record, error)
	ListPendingByType(ctx context.Context, outcomeType string, limit int) ([]*Record, error)
	ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Record, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]*Record, error)
}

// Conversations is the read access the sweeps need to judge what happened
// since a prediction was made.
type Conversations interface {
	GetByID(ctx context.Context, tenantID, conversationID uuid.UUID) (*domain.Conversation, error)
}

const sweepBatchSize = 500

// Service owns the outcome lifecycle: opening pending records, resolving
// them by sweep or by hand, and expiring the ones that ran out the clock.
type Service struct {
	store         Store
	conversations Conversations
	windows       tuning.Outcome
	bus           events.Bus
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates an outcome service.
func NewService(store Store, conversations Conversations, windows tuning.Outcome, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:         store,
		conversations: conversations,
		windows:       windows,
		bus:           bus,
		log:           log,
		now:           time.Now,
	}
}

// Open creates a pending outcome record for a confidence-bearing action.
// The resolution window is fixed per outcome type at creation time. ActionID
// links back to the entity the action produced, when there is one.
func (s *Service) Open(ctx context.Context, tenantID, conversationID uuid.UUID, actionType string, actionID *uuid.UUID, outcomeType string, confidence float64, metadata map[string]any) (*Record, error) {
	if actionType == "" {
		return nil, apperr.Validation("action type is required")
	}
	if !KnownType(outcomeType) {
		return nil, apperr.Validation(fmt.Sprintf("unknown outcome type %q", outcomeType))
	}
	if confidence < 0 || confidence > 1 {
		return nil, apperr.Validation("predicted confidence must be in [0, 1]")
	}

	now := s.now()
	rec := &Record{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		ConversationID:      conversationID,
		ActionType:          actionType,
		ActionID:            actionID,
		PredictedConfidence: confidence,
		OutcomeType:         outcomeType,
		Status:              StatusPending,
		Metadata:            metadata,
		WindowExpiresAt:     now.Add(s.windows.Window(outcomeType)),
		CreatedAt:           now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, domainevents.OutcomeRecorded{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    tenantID,
		OutcomeID:   rec.ID,
		ActionType:  actionType,
		OutcomeType: outcomeType,
		Confidence:  confidence,
	})
	return rec, nil
}

// Get returns one record scoped to a tenant.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Record, error) {
	return s.store.GetByID(ctx, tenantID, id)
}

// ListByConversation returns the outcome history of a conversation.
func (s *Service) ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Record, error) {
	return s.store.ListByConversation(ctx, tenantID, conversationID)
}

// Resolve settles a pending record with an observed status. Expired is not
// accepted here; only the expiry sweep writes it.
func (s *Service) Resolve(ctx context.Context, tenantID, id uuid.UUID, status string, score *float64, signalSource string) (*Record, error) {
	if !resolvableStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("cannot resolve to status %q", status))
	}
	if score != nil && (*score < 0 || *score > 1) {
		return nil, apperr.Validation("outcome score must be in [0, 1]")
	}
	if signalSource != SourceAutomatic && signalSource != SourceHumanLabel {
		return nil, apperr.Validation(fmt.Sprintf("unknown signal source %q", signalSource))
	}

	rec, err := s.store.Resolve(ctx, tenantID, id, status, score, signalSource, s.now())
	if err != nil {
		return nil, err
	}
	s.publishResolved(ctx, rec)
	return rec, nil
}

// SweepEngagement resolves pending email engagement records whose
// conversation has had new inbound activity since the email went out. Quiet
// conversations stay pending until the window expires.
func (s *Service) SweepEngagement(ctx context.Context) (scanned, resolved int, err error) {
	records, err := s.store.ListPendingByType(ctx, TypeEmailEngagement, sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range records {
		scanned++
		baseline, ok := rec.MetadataInt(MetaInteractionBaseline)
		if !ok {
			continue
		}

		conv, err := s.conversations.GetByID(ctx, rec.TenantID, rec.ConversationID)
		if err != nil {
			if s.log != nil {
				s.log.DatabaseError("sweep engagement lookup", err)
			}
			continue
		}
		if conv.InteractionCount <= baseline {
			continue
		}

		if s.resolveSwept(ctx, rec, StatusPositive, scoreOf(1.0)) {
			resolved++
		}
	}

	if s.log != nil {
		s.log.SweepResult("email_engagement", scanned, resolved, 0)
	}
	return scanned, resolved, nil
}

// SweepProgression resolves pending deal progression records against where
// the deal actually went. Forward movement scores 0.2 per pipeline step,
// capped at 1.0; a lost or stalled deal scores zero.
func (s *Service) SweepProgression(ctx context.Context) (scanned, resolved int, err error) {
	records, err := s.store.ListPendingByType(ctx, TypeDealProgression, sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range records {
		scanned++
		origin, ok := rec.MetadataString(MetaStageAtPrediction)
		if !ok {
			continue
		}

		conv, err := s.conversations.GetByID(ctx, rec.TenantID, rec.ConversationID)
		if err != nil {
			if s.log != nil {
				s.log.DatabaseError("sweep progression lookup", err)
			}
			continue
		}

		status, score, decided := progressionResult(domain.DealStage(origin), conv.Stage)
		if !decided {
			continue
		}
		if s.resolveSwept(ctx, rec, status, scoreOf(score)) {
			resolved++
		}
	}

	if s.log != nil {
		s.log.SweepResult("deal_progression", scanned, resolved, 0)
	}
	return scanned, resolved, nil
}

// progressionResult maps stage movement since prediction to an outcome.
// No movement is undecided; the expiry sweep settles those.
func progressionResult(origin, current domain.DealStage) (status string, score float64, decided bool) {
	switch current {
	case domain.StageClosedWon:
		return StatusPositive, 1.0, true
	case domain.StageClosedLost, domain.StageStalled:
		return StatusNegative, 0.0, true
	}

	steps := domain.StepsForward(origin, current)
	if steps <= 0 {
		return "", 0, false
	}
	score = 0.2 * float64(steps)
	if score > 1.0 {
		score = 1.0
	}
	return StatusPositive, score, true
}

// ExpireOverdue settles every pending record past its window as expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.store.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, rec := range expired {
		s.publishResolved(ctx, rec)
	}
	if s.log != nil {
		s.log.SweepResult("expiry", len(expired), 0, len(expired))
	}
	return len(expired), nil
}

// resolveSwept settles one record from a sweep. A conflict means another
// worker got there first; that is fine and not counted.
func (s *Service) resolveSwept(ctx context.Context, rec *Record, status string, score *float64) bool {
	resolved, err := s.store.Resolve(ctx, rec.TenantID, rec.ID, status, score, SourceAutomatic, s.now())
	if err != nil {
		if !apperr.Is(err, apperr.KindConflict) && s.log != nil {
			s.log.DatabaseError("sweep resolve", err)
		}
		return false
	}
	s.publishResolved(ctx, resolved)
	return true
}

func scoreOf(v float64) *float64 {
	return &v
}

func (s *Service) publishResolved(ctx context.Context, rec *Record) {
	s.publish(ctx, domainevents.OutcomeResolved{
		BaseEvent:           events.NewBaseEvent(),
		TenantID:            rec.TenantID,
		OutcomeID:           rec.ID,
		ActionType:          rec.ActionType,
		OutcomeType:         rec.OutcomeType,
		Status:              rec.Status,
		Score:               rec.Score,
		PredictedConfidence: rec.PredictedConfidence,
	})
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
