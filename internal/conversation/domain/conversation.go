package domain

import (
	"time"

	"github.com/google/uuid"
)

// PersonaType classifies the contact's seniority for tone adaptation.
type PersonaType string

const (
	PersonaIC      PersonaType = "ic"
	PersonaManager PersonaType = "manager"
	PersonaCSuite  PersonaType = "c_suite"
)

// Channel is the medium of the last interaction.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Conversation is the persistent decision state for one
// (tenant, account, contact) relationship. It is created lazily on the
// first interaction and never hard-deleted; terminal stages freeze stage
// mutation but the record stays for analytics.
type Conversation struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	AccountID        uuid.UUID
	ContactID        uuid.UUID
	ContactEmail     string
	ContactName      string
	ContactPhone     string
	Stage            DealStage
	Persona          PersonaType
	Qualification    Qualification
	InteractionCount int
	LastInteraction  *time.Time
	LastChannel      *Channel
	Escalated        bool
	EscalationReason *string
	ConfidenceScore  float64
	Extensions       Extensions
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewConversation creates a fresh conversation at the start of the pipeline
// with neutral confidence.
func NewConversation(tenantID, accountID, contactID uuid.UUID) Conversation {
	return Conversation{
		ID:              uuid.New(),
		TenantID:        tenantID,
		AccountID:       accountID,
		ContactID:       contactID,
		Stage:           StageProspecting,
		Persona:         PersonaIC,
		Qualification:   NewQualification(),
		ConfidenceScore: 0.5,
	}
}

// DaysSinceLastInteraction returns the age of the last touch, or -1 when
// the conversation has never had one.
func (c Conversation) DaysSinceLastInteraction(now time.Time) int {
	if c.LastInteraction == nil {
		return -1
	}
	return int(now.Sub(*c.LastInteraction).Hours() / 24)
}
