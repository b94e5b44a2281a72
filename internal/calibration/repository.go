package calibration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for calibration bins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a calibration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Increment folds one resolved outcome into its bin. The upsert keeps the
// aggregates correct under concurrent sweeps without explicit locking.
func (r *Repository) Increment(ctx context.Context, tenantID uuid.UUID, actionType string, bin int, confidence, outcomeValue float64) error {
	query := `
		INSERT INTO calibration_bins (tenant_id, action_type, bin_index, sample_count, confidence_sum, outcome_sum)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (tenant_id, action_type, bin_index) DO UPDATE SET
			sample_count = calibration_bins.sample_count + 1,
			confidence_sum = calibration_bins.confidence_sum + EXCLUDED.confidence_sum,
			outcome_sum = calibration_bins.outcome_sum + EXCLUDED.outcome_sum`

	_, err := r.pool.Exec(ctx, query, tenantID, actionType, bin, confidence, outcomeValue)
	if err != nil {
		return fmt.Errorf("failed to increment calibration bin: %w", err)
	}
	return nil
}

// List returns the bins for one tenant and action type, ordered by bin index.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, actionType string) ([]Bin, error) {
	query := `
		SELECT tenant_id, action_type, bin_index, sample_count, confidence_sum, outcome_sum
		FROM calibration_bins
		WHERE tenant_id = $1 AND action_type = $2
		ORDER BY bin_index`

	rows, err := r.pool.Query(ctx, query, tenantID, actionType)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration bins: %w", err)
	}
	defer rows.Close()

	var bins []Bin
	for rows.Next() {
		var b Bin
		if err := rows.Scan(&b.TenantID, &b.ActionType, &b.BinIndex, &b.SampleCount, &b.ConfidenceSum, &b.OutcomeSum); err != nil {
			return nil, fmt.Errorf("failed to scan calibration bin: %w", err)
		}
		bins = append(bins, b)
	}
	return bins, rows.Err()
}

// ListTenants returns every tenant that has accumulated calibration data.
// Used by the periodic calibration check to know whom to evaluate.
func (r *Repository) ListTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM calibration_bins ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration tenants: %w", err)
	}
	defer rows.Close()

	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

// ListActionTypes returns the distinct action types a tenant has bins for.
func (r *Repository) ListActionTypes(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT action_type FROM calibration_bins WHERE tenant_id = $1 ORDER BY action_type`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration action types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan action type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
