package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dloopdao/governd/internal/domain"
)

const aiNodeColumns = `id, address, name, strategy, accuracy, votes_cast, delegated_power, active, registered_at, updated_at`

// AINodeStore implements domain.AINodeStore using PostgreSQL. Accuracy is
// derived from the votes_cast/votes_won counters so it never drifts from
// the underlying tallies.
type AINodeStore struct {
	pool *pgxpool.Pool
}

// NewAINodeStore creates an AINodeStore backed by the given pool.
func NewAINodeStore(pool *pgxpool.Pool) *AINodeStore {
	return &AINodeStore{pool: pool}
}

// Upsert inserts or updates a node registry entry keyed by address.
// Vote counters are owned by RecordVote and left untouched on update.
func (s *AINodeStore) Upsert(ctx context.Context, n domain.AINode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_nodes (address, name, strategy, delegated_power, active, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (address) DO UPDATE SET
			name            = EXCLUDED.name,
			strategy        = EXCLUDED.strategy,
			delegated_power = EXCLUDED.delegated_power,
			active          = EXCLUDED.active,
			updated_at      = NOW()`,
		n.Address, n.Name, n.Strategy, n.DelegatedPower, n.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert ai node %s: %w", n.Address, err)
	}
	return nil
}

// GetByID returns a node by its row ID, or domain.ErrNotFound.
func (s *AINodeStore) GetByID(ctx context.Context, id int64) (domain.AINode, error) {
	n, err := s.scanNode(s.pool.QueryRow(ctx,
		`SELECT `+aiNodeColumns+` FROM ai_nodes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AINode{}, domain.ErrNotFound
		}
		return domain.AINode{}, fmt.Errorf("postgres: get ai node %d: %w", id, err)
	}
	return n, nil
}

// GetByAddress returns a node by its on-chain address, or domain.ErrNotFound.
func (s *AINodeStore) GetByAddress(ctx context.Context, address string) (domain.AINode, error) {
	n, err := s.scanNode(s.pool.QueryRow(ctx,
		`SELECT `+aiNodeColumns+` FROM ai_nodes WHERE address = $1`, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AINode{}, domain.ErrNotFound
		}
		return domain.AINode{}, fmt.Errorf("postgres: get ai node %s: %w", address, err)
	}
	return n, nil
}

// ListActive returns active nodes ordered by delegated power.
func (s *AINodeStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.AINode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+aiNodeColumns+` FROM ai_nodes
		WHERE active
		ORDER BY delegated_power DESC, id ASC
		LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ai nodes: %w", err)
	}
	defer rows.Close()

	var ns []domain.AINode
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan ai node: %w", err)
		}
		ns = append(ns, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ai nodes: %w", err)
	}
	return ns, nil
}

// CountActive returns the number of active nodes.
func (s *AINodeStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ai_nodes WHERE active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count ai nodes: %w", err)
	}
	return count, nil
}

// RecordVote bumps a node's vote counters and recomputes accuracy in a
// single statement.
func (s *AINodeStore) RecordVote(ctx context.Context, address string, onWinningSide bool) error {
	won := 0
	if onWinningSide {
		won = 1
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE ai_nodes SET
			votes_cast = votes_cast + 1,
			votes_won  = votes_won + $2,
			accuracy   = (votes_won + $2)::DOUBLE PRECISION / (votes_cast + 1),
			updated_at = NOW()
		WHERE address = $1`,
		address, won,
	)
	if err != nil {
		return fmt.Errorf("postgres: record vote for %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *AINodeStore) scanNode(row pgx.Row) (domain.AINode, error) {
	var n domain.AINode
	err := row.Scan(&n.ID, &n.Address, &n.Name, &n.Strategy, &n.Accuracy,
		&n.VotesCast, &n.DelegatedPower, &n.Active, &n.RegisteredAt, &n.UpdatedAt)
	return n, err
}

// Compile-time interface check.
var _ domain.AINodeStore = (*AINodeStore)(nil)
