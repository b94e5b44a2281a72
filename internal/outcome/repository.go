package outcome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const outcomeNotFoundMsg = "outcome record not found"

// Repository provides database operations for outcome records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an outcome repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, tenant_id, conversation_id, action_type, action_id, predicted_confidence,
	outcome_type, status, outcome_score, signal_source, metadata, window_expires_at, created_at, resolved_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.ConversationID, &rec.ActionType, &rec.ActionID, &rec.PredictedConfidence,
		&rec.OutcomeType, &rec.Status, &rec.Score, &rec.SignalSource, &rec.Metadata, &rec.WindowExpiresAt,
		&rec.CreatedAt, &rec.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new pending outcome record.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO outcome_records (
			id, tenant_id, conversation_id, action_type, action_id, predicted_confidence,
			outcome_type, status, metadata, window_expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.TenantID, rec.ConversationID, rec.ActionType, rec.ActionID, rec.PredictedConfidence,
		rec.OutcomeType, rec.Status, rec.Metadata, rec.WindowExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outcome record: %w", err)
	}
	return nil
}

// GetByID retrieves one outcome record scoped to a tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM outcome_records WHERE id = $1 AND tenant_id = $2`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(outcomeNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get outcome record: %w", err)
	}
	return rec, nil
}

// Resolve moves a pending record to a terminal status. The row is locked
// for the duration of the transaction; resolving an already-resolved record
// is a conflict, never a silent overwrite.
func (r *Repository) Resolve(ctx context.Context, tenantID, id uuid.UUID, status string, score *float64, signalSource string, resolvedAt time.Time) (*Record, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin resolve transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + recordColumns + ` FROM outcome_records
		WHERE id = $1 AND tenant_id = $2 FOR UPDATE`

	rec, err := scanRecord(tx.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(outcomeNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to lock outcome record: %w", err)
	}
	if rec.Status != StatusPending {
		return nil, apperr.Conflict(fmt.Sprintf("outcome already resolved as %s", rec.Status))
	}

	_, err = tx.Exec(ctx, `
		UPDATE outcome_records
		SET status = $1, outcome_score = $2, signal_source = $3, resolved_at = $4
		WHERE id = $5`,
		status, score, signalSource, resolvedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve outcome record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit resolve: %w", err)
	}

	rec.Status = status
	rec.Score = score
	rec.SignalSource = &signalSource
	rec.ResolvedAt = &resolvedAt
	return rec, nil
}

// ListPendingByType returns up to limit pending records of one outcome type
// across all tenants, oldest first. Reads take no locks; when two sweep
// workers pick up the same rows, Resolve's pending re-check under FOR UPDATE
// lets exactly one of them win.
func (r *Repository) ListPendingByType(ctx context.Context, outcomeType string, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM outcome_records
		WHERE outcome_type = $1 AND status = $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, outcomeType, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outcomes: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByConversation returns all records for one conversation, newest first.
func (r *Repository) ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM outcome_records
		WHERE tenant_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation outcomes: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExpireOverdue flips every pending record whose window has passed to
// expired and returns the affected records.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]*Record, error) {
	query := `
		UPDATE outcome_records
		SET status = $1, signal_source = $2, resolved_at = $3
		WHERE status = $4 AND window_expires_at < $3
		RETURNING ` + recordColumns

	rows, err := r.pool.Query(ctx, query, StatusExpired, SourceAutomatic, now, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to expire outcome records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
