package feedback

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for feedback entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a feedback repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a feedback entry. There is no update path on purpose.
func (r *Repository) Create(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO feedback_entries (
			id, tenant_id, conversation_id, decision_kind, source, rating, comment, rated_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.TenantID, entry.ConversationID, entry.DecisionKind,
		entry.Source, entry.Rating, entry.Comment, entry.RatedBy, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback entry: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's feedback, newest first.
func (r *Repository) ListByConversation(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*Entry, error) {
	query := `
		SELECT id, tenant_id, conversation_id, decision_kind, source, rating, comment, rated_by, created_at
		FROM feedback_entries
		WHERE tenant_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ConversationID, &e.DecisionKind,
			&e.Source, &e.Rating, &e.Comment, &e.RatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SummaryRow is one aggregate bucket of the tenant feedback summary.
type SummaryRow struct {
	DecisionKind string  `json:"decision_kind"`
	Source       string  `json:"source"`
	Count        int     `json:"count"`
	AvgRating    float64 `json:"avg_rating"`
}

// Summarize aggregates ratings per decision kind and source for a tenant.
func (r *Repository) Summarize(ctx context.Context, tenantID uuid.UUID) ([]SummaryRow, error) {
	query := `
		SELECT decision_kind, source, COUNT(*), AVG(rating)::float8
		FROM feedback_entries
		WHERE tenant_id = $1
		GROUP BY decision_kind, source
		ORDER BY decision_kind, source`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.DecisionKind, &row.Source, &row.Count, &row.AvgRating); err != nil {
			return nil, fmt.Errorf("failed to scan feedback summary: %w", err)
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}
