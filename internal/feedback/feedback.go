// Package feedback stores human judgments of agent decisions. Entries are
// append-only; a rating is a fact about what a person said at a point in
// time and is never edited afterwards.
package feedback

import (
	"time"

	"github.com/google/uuid"

	"salesflow_backend/platform/apperr"
)

// Feedback sources. Inline reactions carry a thumb signal; dashboard
// reviews carry a five-point rating.
const (
	SourceInline    = "inline"
	SourceDashboard = "dashboard"
)

// Entry is one recorded judgment about an agent decision.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	DecisionKind   string    `json:"decision_kind"`
	Source         string    `json:"source"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	RatedBy        uuid.UUID `json:"rated_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidateRating checks the rating scale for a source. Inline reactions are
// -1, 0, or 1; dashboard ratings run 1 through 5.
func ValidateRating(source string, rating int) error {
	switch source {
	case SourceInline:
		if rating < -1 || rating > 1 {
			return apperr.Validation("inline rating must be -1, 0, or 1")
		}
	case SourceDashboard:
		if rating < 1 || rating > 5 {
			return apperr.Validation("dashboard rating must be between 1 and 5")
		}
	default:
		return apperr.Validation("source must be inline or dashboard")
	}
	return nil
}
