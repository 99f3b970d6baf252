package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dloopdao/governd/internal/domain"
)

// ProposalStore implements domain.ProposalStore using PostgreSQL.
type ProposalStore struct {
	pool *pgxpool.Pool
}

// NewProposalStore creates a ProposalStore backed by the given pool.
func NewProposalStore(pool *pgxpool.Pool) *ProposalStore {
	return &ProposalStore{pool: pool}
}

// Tallies only ever increase while a proposal is live, so the upsert keeps
// the greater of stored vs incoming as a corruption guard against a stale
// or partial chain read.
const proposalUpsertQuery = `
	INSERT INTO proposals (
		id, proposer, title, description, proposal_type,
		asset_address, asset_symbol, amount,
		for_votes, against_votes, executed, canceled, chain_state,
		created_at, voting_ends, executed_tx, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11, $12, $13,
		$14, $15, $16, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		title         = EXCLUDED.title,
		description   = EXCLUDED.description,
		proposal_type = EXCLUDED.proposal_type,
		asset_address = EXCLUDED.asset_address,
		asset_symbol  = EXCLUDED.asset_symbol,
		amount        = EXCLUDED.amount,
		for_votes     = GREATEST(proposals.for_votes, EXCLUDED.for_votes),
		against_votes = GREATEST(proposals.against_votes, EXCLUDED.against_votes),
		executed      = proposals.executed OR EXCLUDED.executed,
		canceled      = proposals.canceled OR EXCLUDED.canceled,
		chain_state   = COALESCE(EXCLUDED.chain_state, proposals.chain_state),
		voting_ends   = COALESCE(EXCLUDED.voting_ends, proposals.voting_ends),
		executed_tx   = CASE WHEN EXCLUDED.executed_tx <> '' THEN EXCLUDED.executed_tx ELSE proposals.executed_tx END,
		updated_at    = NOW()`

// Upsert inserts or updates a single proposal.
func (s *ProposalStore) Upsert(ctx context.Context, p domain.Proposal) error {
	_, err := s.pool.Exec(ctx, proposalUpsertQuery, proposalArgs(p)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert proposal %d: %w", p.ID, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple proposals in a single batch.
func (s *ProposalStore) UpsertBatch(ctx context.Context, ps []domain.Proposal) error {
	if len(ps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range ps {
		batch.Queue(proposalUpsertQuery, proposalArgs(p)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert proposal batch: %w", err)
		}
	}
	return nil
}

func proposalArgs(p domain.Proposal) []any {
	var chainState *int16
	if p.ChainState != nil {
		v := int16(*p.ChainState)
		chainState = &v
	}
	return []any{
		p.ID, p.Proposer, p.Title, p.Description, string(p.Type),
		p.AssetAddress, p.AssetSymbol, p.Amount,
		p.ForVotes, p.AgainstVotes, p.Executed, p.Canceled, chainState,
		p.CreatedAt, p.VotingEnds, p.ExecutedTx,
	}
}

// deadlineExpr is the effective voting deadline: the stored voting_ends, or
// the default 3-day window past creation when the contract reported none.
// A bare voting_ends comparison is NULL for deadline-less rows and would
// silently drop them from every status branch.
const deadlineExpr = `COALESCE(voting_ends, created_at + interval '3 days')`

// statusCond maps a status filter onto stored flags and the effective
// deadline; the full resolver runs in the service layer. Good enough for
// pagination. Returns "" when the status does not constrain the query.
func statusCond(status domain.ProposalStatus) string {
	switch status {
	case domain.ProposalStatusExecuted:
		return "executed = TRUE"
	case domain.ProposalStatusActive:
		return "executed = FALSE AND canceled = FALSE AND " + deadlineExpr + " > NOW()"
	case domain.ProposalStatusPassed, domain.ProposalStatusFailed:
		return "executed = FALSE AND " + deadlineExpr + " <= NOW()"
	}
	return ""
}

const proposalColumns = `
	id, proposer, title, description, proposal_type,
	asset_address, asset_symbol, amount,
	for_votes, against_votes, executed, canceled, chain_state,
	created_at, voting_ends, executed_tx, updated_at`

// GetByID returns a single proposal, or domain.ErrNotFound.
func (s *ProposalStore) GetByID(ctx context.Context, id int64) (domain.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, fmt.Errorf("postgres: get proposal %d: %w", id, err)
	}
	return p, nil
}

// List returns proposals matching the filter, newest first.
func (s *ProposalStore) List(ctx context.Context, filter domain.ProposalFilter, opts domain.ListOpts) ([]domain.Proposal, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Type != "" {
		add("proposal_type = $%d", string(filter.Type))
	}
	if filter.Proposer != "" {
		add("proposer = $%d", filter.Proposer)
	}
	if cond := statusCond(filter.Status); cond != "" {
		conds = append(conds, cond)
	}
	if opts.Since != nil {
		add("created_at >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		add("created_at < $%d", *opts.Until)
	}

	query := `SELECT ` + proposalColumns + ` FROM proposals`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list proposals: %w", err)
	}
	defer rows.Close()

	return collectProposals(rows)
}

// Count returns the total number of stored proposals.
func (s *ProposalStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count proposals: %w", err)
	}
	return count, nil
}

// CountActive returns the number of proposals still inside their voting
// window. Like List's status filter this is the SQL approximation; exact
// status comes from the resolver at read time.
func (s *ProposalStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals
		 WHERE executed = FALSE AND canceled = FALSE AND `+deadlineExpr+` > NOW()`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active proposals: %w", err)
	}
	return count, nil
}

// CountExecuted returns the number of executed proposals.
func (s *ProposalStore) CountExecuted(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals WHERE executed = TRUE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count executed proposals: %w", err)
	}
	return count, nil
}

// MaxID returns the highest indexed proposal ID, or 0 when empty.
func (s *ProposalStore) MaxID(ctx context.Context) (int64, error) {
	var max int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM proposals`).Scan(&max); err != nil {
		return 0, fmt.Errorf("postgres: max proposal id: %w", err)
	}
	return max, nil
}

// ListTerminalBefore returns executed or canceled proposals last updated
// before cutoff, for archival.
func (s *ProposalStore) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Proposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals
		 WHERE (executed = TRUE OR canceled = TRUE) AND updated_at < $1
		 ORDER BY id ASC LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal proposals: %w", err)
	}
	defer rows.Close()

	return collectProposals(rows)
}

// DeleteBatch removes proposals by ID. Vote rows cascade.
func (s *ProposalStore) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM proposals WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("postgres: delete proposals: %w", err)
	}
	return nil
}

func scanProposal(row pgx.Row) (domain.Proposal, error) {
	var (
		p          domain.Proposal
		pType      string
		chainState *int16
	)
	err := row.Scan(
		&p.ID, &p.Proposer, &p.Title, &p.Description, &pType,
		&p.AssetAddress, &p.AssetSymbol, &p.Amount,
		&p.ForVotes, &p.AgainstVotes, &p.Executed, &p.Canceled, &chainState,
		&p.CreatedAt, &p.VotingEnds, &p.ExecutedTx, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Proposal{}, err
	}
	p.Type = domain.ProposalType(pType)
	if chainState != nil {
		cs := domain.ChainState(*chainState)
		p.ChainState = &cs
	}
	return p, nil
}

func collectProposals(rows pgx.Rows) ([]domain.Proposal, error) {
	var ps []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan proposal: %w", err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate proposals: %w", err)
	}
	return ps, nil
}

// Compile-time interface check.
var _ domain.ProposalStore = (*ProposalStore)(nil)
