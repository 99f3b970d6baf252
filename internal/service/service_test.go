package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeProposalStore struct {
	byID    map[int64]domain.Proposal
	upserts []domain.Proposal
	gets    int
}

func newFakeProposalStore(ps ...domain.Proposal) *fakeProposalStore {
	s := &fakeProposalStore{byID: make(map[int64]domain.Proposal)}
	for _, p := range ps {
		s.byID[p.ID] = p
	}
	return s
}

func (s *fakeProposalStore) Upsert(_ context.Context, p domain.Proposal) error {
	s.upserts = append(s.upserts, p)
	s.byID[p.ID] = p
	return nil
}

func (s *fakeProposalStore) UpsertBatch(ctx context.Context, ps []domain.Proposal) error {
	for _, p := range ps {
		if err := s.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeProposalStore) GetByID(_ context.Context, id int64) (domain.Proposal, error) {
	s.gets++
	p, ok := s.byID[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeProposalStore) List(_ context.Context, _ domain.ProposalFilter, _ domain.ListOpts) ([]domain.Proposal, error) {
	var out []domain.Proposal
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeProposalStore) Count(context.Context) (int64, error)         { return int64(len(s.byID)), nil }
func (s *fakeProposalStore) CountActive(context.Context) (int64, error)   { return 0, nil }
func (s *fakeProposalStore) CountExecuted(context.Context) (int64, error) { return 0, nil }
func (s *fakeProposalStore) MaxID(context.Context) (int64, error)         { return 0, nil }
func (s *fakeProposalStore) ListTerminalBefore(context.Context, time.Time, int) ([]domain.Proposal, error) {
	return nil, nil
}
func (s *fakeProposalStore) DeleteBatch(context.Context, []int64) error { return nil }

type fakeProposalCache struct {
	items            map[int64]domain.Proposal
	lists            map[string][]domain.Proposal
	invalidated      []int64
	listsInvalidated int
}

func newFakeProposalCache() *fakeProposalCache {
	return &fakeProposalCache{
		items: make(map[int64]domain.Proposal),
		lists: make(map[string][]domain.Proposal),
	}
}

func (c *fakeProposalCache) Set(_ context.Context, p domain.Proposal) error {
	c.items[p.ID] = p
	return nil
}

func (c *fakeProposalCache) Get(_ context.Context, id int64) (domain.Proposal, error) {
	p, ok := c.items[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (c *fakeProposalCache) SetList(_ context.Context, key string, ps []domain.Proposal) error {
	c.lists[key] = ps
	return nil
}

func (c *fakeProposalCache) GetList(_ context.Context, key string) ([]domain.Proposal, error) {
	ps, ok := c.lists[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ps, nil
}

func (c *fakeProposalCache) Invalidate(_ context.Context, id int64) error {
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func (c *fakeProposalCache) InvalidateLists(context.Context) error {
	c.lists = make(map[string][]domain.Proposal)
	c.listsInvalidated++
	return nil
}

type fakeVoteStore struct {
	records []domain.VoteRecord
	voted   map[string]bool
}

func newFakeVoteStore() *fakeVoteStore {
	return &fakeVoteStore{voted: make(map[string]bool)}
}

func (s *fakeVoteStore) Insert(_ context.Context, v domain.VoteRecord) error {
	s.records = append(s.records, v)
	return nil
}

func (s *fakeVoteStore) HasVoted(_ context.Context, _ int64, voter string) (bool, error) {
	return s.voted[voter], nil
}

func (s *fakeVoteStore) ListByProposal(context.Context, int64, domain.ListOpts) ([]domain.VoteRecord, error) {
	return s.records, nil
}

func (s *fakeVoteStore) ListByVoter(context.Context, string, domain.ListOpts) ([]domain.VoteRecord, error) {
	return s.records, nil
}

type fakeSubmitter struct {
	calls []string
	fail  error
}

func (f *fakeSubmitter) From() string { return "0xOperator" }

func (f *fakeSubmitter) submit(call string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.calls = append(f.calls, call)
	return "0xtxhash", nil
}

func (f *fakeSubmitter) Vote(_ context.Context, _ int64, _ bool) (string, error) {
	return f.submit("vote")
}

func (f *fakeSubmitter) ExecuteProposal(_ context.Context, _ int64) (string, error) {
	return f.submit("execute")
}

func (f *fakeSubmitter) CancelProposal(_ context.Context, _ int64) (string, error) {
	return f.submit("cancel")
}

func (f *fakeSubmitter) CreateProposal(_ context.Context, _ domain.ProposalType, _ string, _ float64, _ string) (string, error) {
	return f.submit("create")
}

type fakeBus struct {
	published map[string][][]byte
}

func newFakeBus() *fakeBus { return &fakeBus{published: make(map[string][][]byte)} }

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

type fakeAudit struct {
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func activeProposal(id int64) domain.Proposal {
	ends := testNow.Add(24 * time.Hour)
	return domain.Proposal{
		ID:         id,
		Title:      "Invest in WETH",
		Type:       domain.ProposalTypeInvest,
		ForVotes:   50_000,
		CreatedAt:  testNow.Add(-24 * time.Hour),
		VotingEnds: &ends,
	}
}

func executableProposal(id int64) domain.Proposal {
	ends := testNow.Add(-time.Hour)
	return domain.Proposal{
		ID:           id,
		Title:        "Divest USDC",
		Type:         domain.ProposalTypeDivest,
		ForVotes:     150_000,
		AgainstVotes: 10_000,
		CreatedAt:    testNow.Add(-96 * time.Hour),
		VotingEnds:   &ends,
	}
}

func newProposalService(store *fakeProposalStore, cache *fakeProposalCache, chain ProposalReader) *ProposalService {
	svc := NewProposalService(store, newFakeVoteStore(), cache, chain, governance.NewResolver(0, 0), testLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestGetProposalCacheHit(t *testing.T) {
	store := newFakeProposalStore()
	cache := newFakeProposalCache()
	p := activeProposal(7)
	require.NoError(t, cache.Set(context.Background(), p))

	svc := newProposalService(store, cache, nil)

	v, err := svc.GetProposal(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.ID)
	assert.Equal(t, domain.ProposalStatusActive, v.Status)
	assert.Zero(t, store.gets, "cache hit must not touch the store")
}

func TestGetProposalStoreFallbackBackfillsCache(t *testing.T) {
	p := executableProposal(3)
	store := newFakeProposalStore(p)
	cache := newFakeProposalCache()

	svc := newProposalService(store, cache, nil)

	v, err := svc.GetProposal(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusPassed, v.Status)
	assert.True(t, v.ReadyToExecute)

	_, err = cache.Get(context.Background(), 3)
	assert.NoError(t, err, "read must back-fill the cache")
}

type fakeChainReader struct {
	proposals map[int64]domain.Proposal
}

func (r *fakeChainReader) ProposalCount(context.Context) (int64, error) {
	return int64(len(r.proposals)), nil
}

func (r *fakeChainReader) GetProposal(_ context.Context, id int64) (domain.Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func TestGetProposalChainFallbackWritesStore(t *testing.T) {
	store := newFakeProposalStore()
	cache := newFakeProposalCache()
	chain := &fakeChainReader{proposals: map[int64]domain.Proposal{9: activeProposal(9)}}

	svc := newProposalService(store, cache, chain)

	v, err := svc.GetProposal(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.ID)
	require.Len(t, store.upserts, 1, "chain hit must be written to the store")
}

func TestGetProposalNotFound(t *testing.T) {
	svc := newProposalService(newFakeProposalStore(), newFakeProposalCache(), &fakeChainReader{})

	_, err := svc.GetProposal(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func newVoteService(store *fakeProposalStore, votes *fakeVoteStore, cache *fakeProposalCache, sub *fakeSubmitter, bus *fakeBus, audit *fakeAudit) *VoteService {
	svc := NewVoteService(store, votes, cache, sub, governance.NewResolver(0, 0), bus, audit, testLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCastVoteOnActiveProposal(t *testing.T) {
	store := newFakeProposalStore(activeProposal(1))
	votes := newFakeVoteStore()
	cache := newFakeProposalCache()
	sub := &fakeSubmitter{}
	bus := newFakeBus()
	audit := &fakeAudit{}

	svc := newVoteService(store, votes, cache, sub, bus, audit)

	txHash, err := svc.CastVote(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, "0xtxhash", txHash)

	require.Len(t, votes.records, 1)
	assert.Equal(t, "0xOperator", votes.records[0].Voter)
	assert.True(t, votes.records[0].Support)

	assert.Contains(t, cache.invalidated, int64(1))
	assert.Equal(t, 1, cache.listsInvalidated)
	assert.Equal(t, []string{"vote_cast"}, audit.events)
	assert.Len(t, bus.published[domain.ChannelVotes], 1)
}

func TestCastVoteAfterDeadlineRejected(t *testing.T) {
	store := newFakeProposalStore(executableProposal(2))
	sub := &fakeSubmitter{}

	svc := newVoteService(store, newFakeVoteStore(), newFakeProposalCache(), sub, newFakeBus(), &fakeAudit{})

	_, err := svc.CastVote(context.Background(), 2, true)
	require.ErrorIs(t, err, domain.ErrVotingClosed)
	assert.Empty(t, sub.calls, "no transaction may be sent for a closed proposal")
}

func TestCastVoteTwiceRejected(t *testing.T) {
	store := newFakeProposalStore(activeProposal(1))
	votes := newFakeVoteStore()
	votes.voted["0xOperator"] = true
	sub := &fakeSubmitter{}

	svc := newVoteService(store, votes, newFakeProposalCache(), sub, newFakeBus(), &fakeAudit{})

	_, err := svc.CastVote(context.Background(), 1, false)
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)
	assert.Empty(t, sub.calls)
}

func TestExecuteRequiresEligibility(t *testing.T) {
	store := newFakeProposalStore(activeProposal(5))
	sub := &fakeSubmitter{}

	svc := newVoteService(store, newFakeVoteStore(), newFakeProposalCache(), sub, newFakeBus(), &fakeAudit{})

	_, err := svc.ExecuteProposal(context.Background(), 5)
	require.ErrorIs(t, err, domain.ErrNotExecutable)
	assert.Empty(t, sub.calls)
}

func TestExecuteEligibleProposal(t *testing.T) {
	store := newFakeProposalStore(executableProposal(6))
	sub := &fakeSubmitter{}
	audit := &fakeAudit{}
	bus := newFakeBus()

	svc := newVoteService(store, newFakeVoteStore(), newFakeProposalCache(), sub, bus, audit)

	txHash, err := svc.ExecuteProposal(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "0xtxhash", txHash)
	assert.Equal(t, []string{"execute"}, sub.calls)
	assert.Equal(t, []string{"proposal_executed"}, audit.events)
	assert.Len(t, bus.published[domain.ChannelProposals], 1)
}

func TestCancelFinalizedProposalRejected(t *testing.T) {
	p := executableProposal(8)
	p.Executed = true
	store := newFakeProposalStore(p)
	sub := &fakeSubmitter{}

	svc := newVoteService(store, newFakeVoteStore(), newFakeProposalCache(), sub, newFakeBus(), &fakeAudit{})

	_, err := svc.CancelProposal(context.Background(), 8)
	require.ErrorIs(t, err, domain.ErrProposalFinal)
	assert.Empty(t, sub.calls)
}
