package feedback

import (
	"context"
	"testing"

	"salesflow_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	entries []*Entry
}

func (f *fakeStore) Create(_ context.Context, entry *Entry) error {
	cp := *entry
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeStore) ListByConversation(_ context.Context, tenantID, conversationID uuid.UUID) ([]*Entry, error) {
	var out []*Entry
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.ConversationID == conversationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Summarize(context.Context, uuid.UUID) ([]SummaryRow, error) {
	return nil, nil
}

func TestRecordInlineRatings(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store)
	tenant, conv, rater := uuid.New(), uuid.New(), uuid.New()

	for _, rating := range []int{-1, 0, 1} {
		if _, err := s.Record(context.Background(), tenant, conv, rater, DecisionEscalation, SourceInline, rating, ""); err != nil {
			t.Fatalf("inline rating %d: %v", rating, err)
		}
	}
	if _, err := s.Record(context.Background(), tenant, conv, rater, DecisionEscalation, SourceInline, 2, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("inline rating 2: err = %v, want validation", err)
	}
}

func TestRecordDashboardRatings(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store)
	tenant, conv, rater := uuid.New(), uuid.New(), uuid.New()

	for _, rating := range []int{1, 3, 5} {
		if _, err := s.Record(context.Background(), tenant, conv, rater, DecisionStageChange, SourceDashboard, rating, "good call"); err != nil {
			t.Fatalf("dashboard rating %d: %v", rating, err)
		}
	}
	for _, rating := range []int{0, 6, -1} {
		if _, err := s.Record(context.Background(), tenant, conv, rater, DecisionStageChange, SourceDashboard, rating, ""); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("dashboard rating %d: err = %v, want validation", rating, err)
		}
	}
}

func TestRecordRejectsUnknownInputs(t *testing.T) {
	s := NewService(&fakeStore{})
	tenant, conv, rater := uuid.New(), uuid.New(), uuid.New()

	if _, err := s.Record(context.Background(), tenant, conv, rater, "vibes", SourceInline, 1, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown decision kind: err = %v", err)
	}
	if _, err := s.Record(context.Background(), tenant, conv, rater, DecisionNextAction, "carrier_pigeon", 1, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown source: err = %v", err)
	}
}

func TestListScopedToTenant(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store)
	conv := uuid.New()
	tenantA, tenantB := uuid.New(), uuid.New()

	if _, err := s.Record(context.Background(), tenantA, conv, uuid.New(), DecisionNextAction, SourceInline, 1, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.ListByConversation(context.Background(), tenantB, conv)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("tenant B sees %d entries, want 0", len(entries))
	}
}
