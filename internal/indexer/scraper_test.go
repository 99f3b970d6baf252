package indexer

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

type fakeChain struct {
	proposals map[int64]domain.Proposal
	calls     int
}

func (c *fakeChain) ProposalCount(context.Context) (int64, error) {
	c.calls++
	return int64(len(c.proposals)), nil
}

func (c *fakeChain) GetProposal(_ context.Context, id int64) (domain.Proposal, error) {
	p, ok := c.proposals[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (c *fakeChain) GetProposals(ctx context.Context, from, to int64) ([]domain.Proposal, error) {
	ps := make([]domain.Proposal, 0, to-from)
	for id := from; id < to; id++ {
		p, err := c.GetProposal(ctx, id)
		if err != nil {
			return ps, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

type fakeStore struct {
	byID    map[int64]domain.Proposal
	open    []domain.Proposal
	upserts []int64
	batches int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[int64]domain.Proposal)}
}

func (s *fakeStore) Upsert(_ context.Context, p domain.Proposal) error {
	s.byID[p.ID] = p
	s.upserts = append(s.upserts, p.ID)
	return nil
}

func (s *fakeStore) UpsertBatch(ctx context.Context, ps []domain.Proposal) error {
	s.batches++
	for _, p := range ps {
		if err := s.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (domain.Proposal, error) {
	p, ok := s.byID[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) List(context.Context, domain.ProposalFilter, domain.ListOpts) ([]domain.Proposal, error) {
	return s.open, nil
}

func (s *fakeStore) Count(context.Context) (int64, error)         { return int64(len(s.byID)), nil }
func (s *fakeStore) CountActive(context.Context) (int64, error)   { return 0, nil }
func (s *fakeStore) CountExecuted(context.Context) (int64, error) { return 0, nil }

func (s *fakeStore) MaxID(context.Context) (int64, error) {
	var max int64
	for id := range s.byID {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (s *fakeStore) ListTerminalBefore(context.Context, time.Time, int) ([]domain.Proposal, error) {
	return nil, nil
}
func (s *fakeStore) DeleteBatch(context.Context, []int64) error { return nil }

type fakeCache struct {
	invalidated      []int64
	listsInvalidated int
}

func (c *fakeCache) Set(context.Context, domain.Proposal) error { return nil }
func (c *fakeCache) Get(context.Context, int64) (domain.Proposal, error) {
	return domain.Proposal{}, domain.ErrNotFound
}
func (c *fakeCache) SetList(context.Context, string, []domain.Proposal) error { return nil }
func (c *fakeCache) GetList(context.Context, string) ([]domain.Proposal, error) {
	return nil, domain.ErrNotFound
}
func (c *fakeCache) Invalidate(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}
func (c *fakeCache) InvalidateLists(context.Context) error {
	c.listsInvalidated++
	return nil
}

type fakeBus struct {
	events []domain.GovernanceEvent
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	var ev domain.GovernanceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

type fakeLocks struct {
	held     bool
	acquired int
}

func (l *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired++
	return func() {}, nil
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

type fakeScorer struct {
	scored map[int64]bool
}

func (s *fakeScorer) ScoreProposal(_ context.Context, id int64, passed bool) error {
	if s.scored == nil {
		s.scored = make(map[int64]bool)
	}
	s.scored[id] = passed
	return nil
}

func newScraper(chain *fakeChain, store *fakeStore, cache *fakeCache, bus *fakeBus, locks *fakeLocks, notifier *fakeNotifier, scorer *fakeScorer) *ProposalScraper {
	s := NewProposalScraper(chain, store, cache, governance.NewResolver(0, 0), bus, locks, notifier, scorer,
		slog.New(slog.DiscardHandler))
	s.now = func() time.Time { return testNow }
	return s
}

func chainProposal(id int64, forVotes, againstVotes float64, endsIn time.Duration) domain.Proposal {
	ends := testNow.Add(endsIn)
	return domain.Proposal{
		ID:           id,
		Title:        "Invest in WETH",
		Type:         domain.ProposalTypeInvest,
		ForVotes:     forVotes,
		AgainstVotes: againstVotes,
		CreatedAt:    testNow.Add(-72 * time.Hour),
		VotingEnds:   &ends,
	}
}

func TestRunIndexesNewProposals(t *testing.T) {
	chain := &fakeChain{proposals: map[int64]domain.Proposal{
		1: chainProposal(1, 500, 100, time.Hour),
		2: chainProposal(2, 0, 0, 48*time.Hour),
	}}
	store := newFakeStore()
	cache := &fakeCache{}
	bus := &fakeBus{}

	s := newScraper(chain, store, cache, bus, &fakeLocks{}, &fakeNotifier{}, &fakeScorer{})

	require.NoError(t, s.Run(context.Background()))

	assert.ElementsMatch(t, []int64{1, 2}, store.upserts)
	assert.Equal(t, 1, store.batches, "new proposals arrive in one batch write")
	assert.Equal(t, 1, cache.listsInvalidated)

	require.Len(t, bus.events, 2)
	for _, ev := range bus.events {
		assert.Equal(t, "proposal_indexed", ev.Type)
	}
}

func TestRunEmitsStatusTransition(t *testing.T) {
	// Nothing changed on chain: tallies and deadline are exactly what the
	// last pass stored. The deadline expiring between passes is the whole
	// transition, so it must still emit.
	final := chainProposal(1, 150_000, 10_000, -time.Minute)
	prev := final
	prev.UpdatedAt = testNow.Add(-10 * time.Minute)
	store := newFakeStore()
	require.NoError(t, store.Upsert(context.Background(), prev))
	store.open = []domain.Proposal{prev}

	chain := &fakeChain{proposals: map[int64]domain.Proposal{1: final}}
	bus := &fakeBus{}
	notifier := &fakeNotifier{}
	scorer := &fakeScorer{}

	s := newScraper(chain, store, &fakeCache{}, bus, &fakeLocks{}, notifier, scorer)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, bus.events, 1)
	assert.Equal(t, "proposal_passed", bus.events[0].Type)
	assert.Equal(t, []string{"proposal_passed"}, notifier.events)
	require.Contains(t, scorer.scored, int64(1))
	assert.True(t, scorer.scored[1], "passed proposal scores support votes as won")
}

func TestRunEmitsFailureOnExpiredQuorumMiss(t *testing.T) {
	final := chainProposal(1, 5_000, 1_000, -time.Minute)
	prev := final
	prev.UpdatedAt = testNow.Add(-10 * time.Minute)
	store := newFakeStore()
	require.NoError(t, store.Upsert(context.Background(), prev))
	store.open = []domain.Proposal{prev}

	chain := &fakeChain{proposals: map[int64]domain.Proposal{1: final}}
	bus := &fakeBus{}
	scorer := &fakeScorer{}

	s := newScraper(chain, store, &fakeCache{}, bus, &fakeLocks{}, &fakeNotifier{}, scorer)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, bus.events, 1)
	assert.Equal(t, "proposal_failed", bus.events[0].Type)
	require.Contains(t, scorer.scored, int64(1))
	assert.False(t, scorer.scored[1], "a quorum miss scores support votes as lost")
}

func TestRunNoTransitionNoNotification(t *testing.T) {
	prev := chainProposal(1, 500, 100, time.Hour)
	store := newFakeStore()
	require.NoError(t, store.Upsert(context.Background(), prev))
	store.open = []domain.Proposal{prev}

	chain := &fakeChain{proposals: map[int64]domain.Proposal{
		1: chainProposal(1, 600, 100, time.Hour),
	}}
	bus := &fakeBus{}
	notifier := &fakeNotifier{}

	s := newScraper(chain, store, &fakeCache{}, bus, &fakeLocks{}, notifier, &fakeScorer{})

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, bus.events, "tally-only refresh must not emit a transition")
	assert.Empty(t, notifier.events)
}

func TestRunCapsNewProposalBatch(t *testing.T) {
	chain := &fakeChain{proposals: map[int64]domain.Proposal{
		1: chainProposal(1, 0, 0, time.Hour),
		2: chainProposal(2, 0, 0, time.Hour),
		3: chainProposal(3, 0, 0, time.Hour),
		4: chainProposal(4, 0, 0, time.Hour),
	}}
	store := newFakeStore()

	s := newScraper(chain, store, &fakeCache{}, &fakeBus{}, &fakeLocks{}, &fakeNotifier{}, &fakeScorer{}).
		WithBatchSize(2)

	require.NoError(t, s.Run(context.Background()))
	assert.ElementsMatch(t, []int64{1, 2}, store.upserts, "a pass fetches at most batchSize new proposals")

	// The backlog drains on the next pass.
	require.NoError(t, s.Run(context.Background()))
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, store.upserts)
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	chain := &fakeChain{proposals: map[int64]domain.Proposal{1: chainProposal(1, 1, 0, time.Hour)}}
	locks := &fakeLocks{held: true}

	s := newScraper(chain, newFakeStore(), &fakeCache{}, &fakeBus{}, locks, &fakeNotifier{}, &fakeScorer{})

	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, chain.calls, "a replica without the lock must not touch the chain")
}
