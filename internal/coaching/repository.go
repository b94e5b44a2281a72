// Package coaching aggregates decision history into read-only analytics for
// sales managers: pipeline funnel, escalation breakdown, outcome hit rates,
// calibration health, and feedback sentiment.
package coaching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries. All reads, no writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a coaching repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StageBucket is one row of the pipeline funnel.
type StageBucket struct {
	Stage         string  `json:"stage"`
	Count         int     `json:"count"`
	AvgCompletion float64 `json:"avg_completion"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// StageFunnel returns conversation counts and averages per deal stage.
func (r *Repository) StageFunnel(ctx context.Context, tenantID uuid.UUID) ([]StageBucket, error) {
	query := `
		SELECT stage, COUNT(*),
			COALESCE(AVG(combined_completion), 0)::float8,
			COALESCE(AVG(confidence_score), 0)::float8
		FROM conversation_states
		WHERE tenant_id = $1
		GROUP BY stage`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage funnel: %w", err)
	}
	defer rows.Close()

	var buckets []StageBucket
	for rows.Next() {
		var b StageBucket
		if err := rows.Scan(&b.Stage, &b.Count, &b.AvgCompletion, &b.AvgConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan stage bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// EscalationBucket is the count of escalated conversations for one reason.
type EscalationBucket struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// EscalationBreakdown returns total conversations and the per-reason
// escalation counts.
func (r *Repository) EscalationBreakdown(ctx context.Context, tenantID uuid.UUID) (total int, buckets []EscalationBucket, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversation_states WHERE tenant_id = $1`, tenantID).Scan(&total)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	query := `
		SELECT COALESCE(escalation_reason, 'unknown'), COUNT(*)
		FROM conversation_states
		WHERE tenant_id = $1 AND escalated
		GROUP BY escalation_reason
		ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query escalation breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b EscalationBucket
		if err := rows.Scan(&b.Reason, &b.Count); err != nil {
			return 0, nil, fmt.Errorf("failed to scan escalation bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return total, buckets, rows.Err()
}

// OutcomeBucket summarizes resolved outcomes for one outcome type.
type OutcomeBucket struct {
	OutcomeType string  `json:"outcome_type"`
	Pending     int     `json:"pending"`
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	Ambiguous   int     `json:"ambiguous"`
	Expired     int     `json:"expired"`
	AvgScore    float64 `json:"avg_outcome_score"`
}

// OutcomeStats returns the outcome status distribution per outcome type.
func (r *Repository) OutcomeStats(ctx context.Context, tenantID uuid.UUID) ([]OutcomeBucket, error) {
	query := `
		SELECT outcome_type,
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'positive'),
			COUNT(*) FILTER (WHERE status = 'negative'),
			COUNT(*) FILTER (WHERE status = 'ambiguous'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(AVG(outcome_score), 0)::float8
		FROM outcome_records
		WHERE tenant_id = $1
		GROUP BY outcome_type
		ORDER BY outcome_type`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome stats: %w", err)
	}
	defer rows.Close()

	var buckets []OutcomeBucket
	for rows.Next() {
		var b OutcomeBucket
		if err := rows.Scan(&b.OutcomeType, &b.Pending, &b.Positive, &b.Negative, &b.Ambiguous, &b.Expired, &b.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan outcome bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
