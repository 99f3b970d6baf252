package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dloopdao/governd/internal/domain"
)

// DelegationStore implements domain.DelegationStore using PostgreSQL.
// One row per delegator: redelegating overwrites the previous target.
type DelegationStore struct {
	pool *pgxpool.Pool
}

// NewDelegationStore creates a DelegationStore backed by the given pool.
func NewDelegationStore(pool *pgxpool.Pool) *DelegationStore {
	return &DelegationStore{pool: pool}
}

// Upsert inserts or replaces a delegator's delegation.
func (s *DelegationStore) Upsert(ctx context.Context, d domain.Delegation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delegations (delegator, delegatee, amount, to_ai_node, tx_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (delegator) DO UPDATE SET
			delegatee  = EXCLUDED.delegatee,
			amount     = EXCLUDED.amount,
			to_ai_node = EXCLUDED.to_ai_node,
			tx_hash    = EXCLUDED.tx_hash,
			updated_at = NOW()`,
		d.Delegator, d.Delegatee, d.Amount, d.ToAINode, d.TxHash,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert delegation %s: %w", d.Delegator, err)
	}
	return nil
}

// GetByDelegator returns a delegator's current delegation, or
// domain.ErrNotFound.
func (s *DelegationStore) GetByDelegator(ctx context.Context, delegator string) (domain.Delegation, error) {
	var d domain.Delegation
	err := s.pool.QueryRow(ctx, `
		SELECT id, delegator, delegatee, amount, to_ai_node, tx_hash, created_at, updated_at
		FROM delegations WHERE delegator = $1`,
		delegator,
	).Scan(&d.ID, &d.Delegator, &d.Delegatee, &d.Amount, &d.ToAINode, &d.TxHash, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Delegation{}, domain.ErrNotFound
		}
		return domain.Delegation{}, fmt.Errorf("postgres: get delegation %s: %w", delegator, err)
	}
	return d, nil
}

// ListByDelegatee returns all delegations pointing at an address.
func (s *DelegationStore) ListByDelegatee(ctx context.Context, delegatee string, opts domain.ListOpts) ([]domain.Delegation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, delegator, delegatee, amount, to_ai_node, tx_hash, created_at, updated_at
		FROM delegations WHERE delegatee = $1
		ORDER BY amount DESC LIMIT $2 OFFSET $3`,
		delegatee, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list delegations to %s: %w", delegatee, err)
	}
	defer rows.Close()

	var ds []domain.Delegation
	for rows.Next() {
		var d domain.Delegation
		if err := rows.Scan(&d.ID, &d.Delegator, &d.Delegatee, &d.Amount, &d.ToAINode, &d.TxHash, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan delegation: %w", err)
		}
		ds = append(ds, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate delegations: %w", err)
	}
	return ds, nil
}

// SumDelegated returns the total delegated voting weight across all
// delegators.
func (s *DelegationStore) SumDelegated(ctx context.Context) (float64, error) {
	var sum float64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM delegations`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("postgres: sum delegated: %w", err)
	}
	return sum, nil
}

// Delete removes a delegator's delegation (undelegation).
func (s *DelegationStore) Delete(ctx context.Context, delegator string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM delegations WHERE delegator = $1`, delegator)
	if err != nil {
		return fmt.Errorf("postgres: delete delegation %s: %w", delegator, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.DelegationStore = (*DelegationStore)(nil)
