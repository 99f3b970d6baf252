package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dloopdao/governd/internal/domain"
)

// VoteStore implements domain.VoteStore using PostgreSQL.
type VoteStore struct {
	pool *pgxpool.Pool
}

// NewVoteStore creates a VoteStore backed by the given pool.
func NewVoteStore(pool *pgxpool.Pool) *VoteStore {
	return &VoteStore{pool: pool}
}

// Insert records a vote. A duplicate (proposal, voter) pair returns
// domain.ErrAlreadyVoted.
func (s *VoteStore) Insert(ctx context.Context, v domain.VoteRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes (proposal_id, voter, support, weight, tx_hash, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ProposalID, v.Voter, v.Support, v.Weight, v.TxHash, v.CastAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("postgres: insert vote (%d, %s): %w", v.ProposalID, v.Voter, err)
	}
	return nil
}

// HasVoted reports whether voter has already voted on the proposal.
func (s *VoteStore) HasVoted(ctx context.Context, proposalID int64, voter string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE proposal_id = $1 AND voter = $2)`,
		proposalID, voter,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: has voted (%d, %s): %w", proposalID, voter, err)
	}
	return exists, nil
}

// ListByProposal returns votes on a proposal, newest first.
func (s *VoteStore) ListByProposal(ctx context.Context, proposalID int64, opts domain.ListOpts) ([]domain.VoteRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT proposal_id, voter, support, weight, tx_hash, cast_at
		FROM votes WHERE proposal_id = $1
		ORDER BY cast_at DESC LIMIT $2 OFFSET $3`,
		proposalID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list votes for proposal %d: %w", proposalID, err)
	}
	defer rows.Close()

	return collectVotes(rows)
}

// ListByVoter returns a voter's history, newest first.
func (s *VoteStore) ListByVoter(ctx context.Context, voter string, opts domain.ListOpts) ([]domain.VoteRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT proposal_id, voter, support, weight, tx_hash, cast_at
		FROM votes WHERE voter = $1
		ORDER BY cast_at DESC LIMIT $2 OFFSET $3`,
		voter, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list votes by %s: %w", voter, err)
	}
	defer rows.Close()

	return collectVotes(rows)
}

func collectVotes(rows pgx.Rows) ([]domain.VoteRecord, error) {
	var vs []domain.VoteRecord
	for rows.Next() {
		var v domain.VoteRecord
		if err := rows.Scan(&v.ProposalID, &v.Voter, &v.Support, &v.Weight, &v.TxHash, &v.CastAt); err != nil {
			return nil, fmt.Errorf("postgres: scan vote: %w", err)
		}
		vs = append(vs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate votes: %w", err)
	}
	return vs, nil
}

// Compile-time interface check.
var _ domain.VoteStore = (*VoteStore)(nil)
