// Package indexer keeps the local governance database in sync with the
// AssetDAO contract and reacts to proposal status transitions.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

const (
	// leaderLockTTL bounds how long a crashed replica can block indexing.
	leaderLockTTL = 2 * time.Minute

	// defaultBatchSize caps proposals fetched in one index pass.
	defaultBatchSize = 500
)

// ChainReader reads proposals from the AssetDAO contract.
type ChainReader interface {
	ProposalCount(ctx context.Context) (int64, error)
	GetProposal(ctx context.Context, id int64) (domain.Proposal, error)
	// GetProposals fetches the half-open ID range [from, to). On error the
	// proposals fetched so far are returned alongside it.
	GetProposals(ctx context.Context, from, to int64) ([]domain.Proposal, error)
}

// NodeScorer updates AI-node accuracy when a proposal reaches a terminal
// outcome.
type NodeScorer interface {
	ScoreProposal(ctx context.Context, proposalID int64, passed bool) error
}

// TransitionNotifier alerts operators about governance events.
type TransitionNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ProposalScraper polls the chain for new and changed proposals, resolves
// their status, and fans out transitions to the cache, the signal bus, the
// notifier and the node scorer.
type ProposalScraper struct {
	chain     ChainReader
	proposals domain.ProposalStore
	cache     domain.ProposalCache
	resolver  *governance.Resolver
	bus       domain.SignalBus
	locks     domain.LockManager
	notifier  TransitionNotifier
	scorer    NodeScorer
	logger    *slog.Logger
	now       func() time.Time
	trigger   chan struct{}
	batchSize int
	lockTTL   time.Duration
}

// Trigger returns a channel that forces an immediate index pass when sent
// on. Sends are non-blocking on the caller side; a pending trigger that has
// not been consumed yet coalesces with the next one.
func (s *ProposalScraper) Trigger() chan<- struct{} {
	return s.trigger
}

// WithBatchSize caps how many proposals a single index pass fetches from
// the chain. Zero or negative values keep the default.
func (s *ProposalScraper) WithBatchSize(n int) *ProposalScraper {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithLockTTL overrides the leader lock TTL. The TTL must comfortably
// exceed the duration of one index pass.
func (s *ProposalScraper) WithLockTTL(ttl time.Duration) *ProposalScraper {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// NewProposalScraper creates a ProposalScraper. notifier and scorer may be
// nil; the corresponding fan-out steps are skipped.
func NewProposalScraper(
	chain ChainReader,
	proposals domain.ProposalStore,
	cache domain.ProposalCache,
	resolver *governance.Resolver,
	bus domain.SignalBus,
	locks domain.LockManager,
	notifier TransitionNotifier,
	scorer NodeScorer,
	logger *slog.Logger,
) *ProposalScraper {
	return &ProposalScraper{
		chain:     chain,
		proposals: proposals,
		cache:     cache,
		resolver:  resolver,
		bus:       bus,
		locks:     locks,
		notifier:  notifier,
		scorer:    scorer,
		logger:    logger,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
		batchSize: defaultBatchSize,
		lockTTL:   leaderLockTTL,
	}
}

// Run executes a single index pass under the distributed leader lock. When
// another replica holds the lock the pass is skipped silently.
func (s *ProposalScraper) Run(ctx context.Context) error {
	unlock, err := s.locks.Acquire(ctx, "indexer", s.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.DebugContext(ctx, "index pass skipped, another replica holds the lock")
			return nil
		}
		return fmt.Errorf("indexer: acquire leader lock: %w", err)
	}
	defer unlock()

	count, err := s.chain.ProposalCount(ctx)
	if err != nil {
		return fmt.Errorf("indexer: proposal count: %w", err)
	}

	maxID, err := s.proposals.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("indexer: max stored id: %w", err)
	}

	synced := 0

	// New proposals first. Contract IDs are 1-based and dense; a huge
	// backlog is worked off across passes rather than in one.
	last := count
	if last-maxID > int64(s.batchSize) {
		last = maxID + int64(s.batchSize)
	}
	if last > maxID {
		batch, err := s.chain.GetProposals(ctx, maxID+1, last+1)
		if err != nil {
			// Keep whatever the partial fetch returned; the rest is picked
			// up next pass.
			s.logger.ErrorContext(ctx, "fetch new proposals failed",
				slog.Int64("from", maxID+1),
				slog.Int64("to", last),
				slog.String("error", err.Error()),
			)
		}
		if len(batch) > 0 {
			now := s.now()
			for i := range batch {
				batch[i].UpdatedAt = now
			}
			if err := s.proposals.UpsertBatch(ctx, batch); err != nil {
				return fmt.Errorf("indexer: store new proposals: %w", err)
			}
			for _, p := range batch {
				s.invalidate(ctx, p.ID)
				s.emit(ctx, "proposal_indexed", p, s.resolver.Resolve(p, now))
			}
			synced += len(batch)
		}
	}

	// Refresh everything still open so tallies and flags stay current.
	open, err := s.proposals.List(ctx, domain.ProposalFilter{Status: domain.ProposalStatusActive}, domain.ListOpts{Limit: s.batchSize})
	if err != nil {
		return fmt.Errorf("indexer: list open proposals: %w", err)
	}
	for _, prev := range open {
		if err := s.refreshOne(ctx, prev); err != nil {
			s.logger.ErrorContext(ctx, "refresh proposal failed",
				slog.Int64("proposal_id", prev.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		synced++
	}

	if synced > 0 {
		if err := s.cache.InvalidateLists(ctx); err != nil {
			s.logger.WarnContext(ctx, "list invalidate failed", slog.String("error", err.Error()))
		}
		s.logger.InfoContext(ctx, "index pass complete",
			slog.Int("synced", synced),
			slog.Int64("chain_count", count),
		)
	}
	return nil
}

// refreshOne re-fetches an open proposal, stores it, and emits transition
// events by comparing the stored resolution against the fresh one.
func (s *ProposalScraper) refreshOne(ctx context.Context, prev domain.Proposal) error {
	p, err := s.chain.GetProposal(ctx, prev.ID)
	if err != nil {
		return fmt.Errorf("fetch proposal %d: %w", prev.ID, err)
	}
	p.UpdatedAt = s.now()

	if err := s.proposals.Upsert(ctx, p); err != nil {
		return fmt.Errorf("store proposal %d: %w", prev.ID, err)
	}
	s.invalidate(ctx, prev.ID)

	now := s.now()
	res := s.resolver.Resolve(p, now)

	// Resolve the stored row at the time it was last observed, not at the
	// current pass time. A voting deadline that expired between passes
	// changes nothing on chain, so comparing both resolutions at the same
	// instant would never see the active -> passed/failed transition.
	observedAt := prev.UpdatedAt
	if observedAt.IsZero() {
		observedAt = prev.CreatedAt
	}
	prevRes := s.resolver.Resolve(prev, observedAt)
	if prevRes.Status != res.Status {
		s.emit(ctx, "proposal_"+string(res.Status), p, res)
		s.onTerminal(ctx, p, res)
	}
	return nil
}

func (s *ProposalScraper) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Int64("proposal_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// onTerminal scores node votes once a proposal has a final outcome.
func (s *ProposalScraper) onTerminal(ctx context.Context, p domain.Proposal, res governance.Resolution) {
	if s.scorer == nil {
		return
	}
	switch res.Status {
	case domain.ProposalStatusPassed, domain.ProposalStatusExecuted:
		s.score(ctx, p.ID, true)
	case domain.ProposalStatusFailed:
		s.score(ctx, p.ID, false)
	}
}

func (s *ProposalScraper) score(ctx context.Context, proposalID int64, passed bool) {
	if err := s.scorer.ScoreProposal(ctx, proposalID, passed); err != nil {
		s.logger.WarnContext(ctx, "node scoring failed",
			slog.Int64("proposal_id", proposalID),
			slog.String("error", err.Error()),
		)
	}
}

// emit publishes a bus event and, for status transitions, a notification.
func (s *ProposalScraper) emit(ctx context.Context, event string, p domain.Proposal, res governance.Resolution) {
	detail, err := json.Marshal(map[string]any{
		"id":       p.ID,
		"title":    p.Title,
		"type":     p.Type,
		"status":   res.Status,
		"for":      p.ForVotes,
		"against":  p.AgainstVotes,
		"deadline": res.Deadline,
	})
	if err != nil {
		return
	}
	payload, err := json.Marshal(domain.GovernanceEvent{
		Type:       event,
		ProposalID: p.ID,
		Payload:    detail,
		At:         s.now(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelProposals, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}

	if s.notifier == nil || event == "proposal_indexed" {
		return
	}
	title := fmt.Sprintf("Proposal #%d is %s", p.ID, res.Status)
	message := fmt.Sprintf("%s\nFor: %.2f  Against: %.2f", p.Title, p.ForVotes, p.AgainstVotes)
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// RunLoop runs the scraper on a repeating interval until the context is
// cancelled.
func (s *ProposalScraper) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := s.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "index pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("proposal scraper loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "index pass failed", slog.String("error", err.Error()))
			}
		case <-s.trigger:
			s.logger.InfoContext(ctx, "index pass triggered manually")
			if err := s.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "index pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
