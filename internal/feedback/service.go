package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salesflow_backend/platform/apperr"
)

// Decision kinds feedback can target.
const (
	DecisionStageChange = "stage_change"
	DecisionEscalation  = "escalation"
	DecisionNextAction  = "next_action"
	DecisionEmailDraft  = "email_draft"
)

var knownDecisionKinds = map[string]bool{
	DecisionStageChange: true,
	DecisionEscalation:  true,
	DecisionNextAction:  true,
	DecisionEmailDraft:  true,
}

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, entry *Entry) error
	ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Entry, error)
	Summarize(ctx context.Context, tenantID uuid.UUID) ([]SummaryRow, error)
}

// Service records and reads feedback entries.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a feedback service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record validates and stores a new feedback entry.
func (s *Service) Record(ctx context.Context, tenantID, conversationID, ratedBy uuid.UUID, decisionKind, source string, rating int, comment string) (*Entry, error) {
	if !knownDecisionKinds[decisionKind] {
		return nil, apperr.Validation("unknown decision kind")
	}
	if err := ValidateRating(source, rating); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		DecisionKind:   decisionKind,
		Source:         source,
		Rating:         rating,
		Comment:        comment,
		RatedBy:        ratedBy,
		CreatedAt:      s.now(),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByConversation returns a conversation's feedback history.
func (s *Service) ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Entry, error) {
	return s.store.ListByConversation(ctx, tenantID, conversationID)
}

// Summarize returns the tenant-wide feedback aggregates.
func (s *Service) Summarize(ctx context.Context, tenantID uuid.UUID) ([]SummaryRow, error) {
	return s.store.Summarize(ctx, tenantID)
}
