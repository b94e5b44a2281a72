// Package repository persists conversation state. Stage writes go through a
// row lock so the transition table holds under concurrent interactions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conversationNotFoundMsg = "conversation not found"

// Repository provides database operations for conversation state.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a conversation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `id, tenant_id, account_id, contact_id, contact_email, contact_name,
	contact_phone, stage, persona, qualification, interaction_count, last_interaction,
	last_channel, escalated, escalation_reason, confidence_score, extensions, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv    domain.Conversation
		stage   string
		persona string
		channel *string
	)
	err := row.Scan(
		&conv.ID, &conv.TenantID, &conv.AccountID, &conv.ContactID, &conv.ContactEmail, &conv.ContactName,
		&conv.ContactPhone, &stage, &persona, &conv.Qualification, &conv.InteractionCount, &conv.LastInteraction,
		&channel, &conv.Escalated, &conv.EscalationReason, &conv.ConfidenceScore, &conv.Extensions,
		&conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	conv.Stage = domain.DealStage(stage)
	conv.Persona = domain.PersonaType(persona)
	if channel != nil {
		ch := domain.Channel(*channel)
		conv.LastChannel = &ch
	}
	return &conv, nil
}

// Create inserts a new conversation state row. A duplicate
// (tenant, account, contact) triple is a conflict.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversation_states (
			id, tenant_id, account_id, contact_id, contact_email, contact_name, contact_phone,
			stage, persona, qualification, interaction_count, last_interaction, last_channel,
			escalated, escalation_reason, confidence_score, combined_completion, extensions,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (tenant_id, account_id, contact_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		conv.ID, conv.TenantID, conv.AccountID, conv.ContactID, conv.ContactEmail, conv.ContactName,
		conv.ContactPhone, string(conv.Stage), string(conv.Persona), conv.Qualification,
		conv.InteractionCount, conv.LastInteraction, channelValue(conv.LastChannel),
		conv.Escalated, conv.EscalationReason, conv.ConfidenceScore,
		conv.Qualification.CombinedCompletion(), conv.Extensions, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("conversation already exists for this contact")
	}
	return nil
}

// GetByID retrieves one conversation scoped to a tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversation_states WHERE id = $1 AND tenant_id = $2`

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(conversationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// GetByContact retrieves the conversation for a (tenant, account, contact)
// triple.
func (r *Repository) GetByContact(ctx context.Context, tenantID, accountID, contactID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversation_states
		WHERE tenant_id = $1 AND account_id = $2 AND contact_id = $3`

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, tenantID, accountID, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(conversationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get conversation by contact: %w", err)
	}
	return conv, nil
}

// Update writes the full conversation state. The current row is locked and
// the stage transition re-validated inside the transaction, so two
// concurrent interactions cannot race past the transition table.
func (r *Repository) Update(ctx context.Context, conv *domain.Conversation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentStage string
	err = tx.QueryRow(ctx,
		`SELECT stage FROM conversation_states WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		conv.ID, conv.TenantID,
	).Scan(&currentStage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(conversationNotFoundMsg)
		}
		return fmt.Errorf("failed to lock conversation: %w", err)
	}

	if err := domain.ValidateTransition(domain.DealStage(currentStage), conv.Stage); err != nil {
		var transitionErr *domain.InvalidStageTransitionError
		if errors.As(err, &transitionErr) {
			return apperr.Conflict(transitionErr.Error()).WithDetails(transitionErr)
		}
		return err
	}

	conv.UpdatedAt = time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE conversation_states SET
			contact_email = $1, contact_name = $2, contact_phone = $3, stage = $4, persona = $5,
			qualification = $6, interaction_count = $7, last_interaction = $8, last_channel = $9,
			escalated = $10, escalation_reason = $11, confidence_score = $12,
			combined_completion = $13, extensions = $14, updated_at = $15
		WHERE id = $16 AND tenant_id = $17`,
		conv.ContactEmail, conv.ContactName, conv.ContactPhone, string(conv.Stage), string(conv.Persona),
		conv.Qualification, conv.InteractionCount, conv.LastInteraction, channelValue(conv.LastChannel),
		conv.Escalated, conv.EscalationReason, conv.ConfidenceScore,
		conv.Qualification.CombinedCompletion(), conv.Extensions, conv.UpdatedAt,
		conv.ID, conv.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns a tenant's conversations, optionally filtered by stage,
// most recently updated first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, stage *domain.DealStage, limit, offset int) ([]*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversation_states WHERE tenant_id = $1`
	args := []any{tenantID}

	if stage != nil {
		query += ` AND stage = $2`
		args = append(args, string(*stage))
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func channelValue(ch *domain.Channel) *string {
	if ch == nil {
		return nil
	}
	s := string(*ch)
	return &s
}
