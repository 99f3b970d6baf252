package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/indexer"
	"github.com/dloopdao/governd/internal/server"
	"github.com/dloopdao/governd/internal/server/handler"
	"github.com/dloopdao/governd/internal/server/ws"
	"github.com/dloopdao/governd/internal/service"
)

// ServerMode starts the HTTP API and the WebSocket hub without the chain
// indexer. Another replica is expected to run index mode against the same
// Postgres and Redis.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps, nil)

	return g.Wait()
}

// IndexMode starts the chain indexer loops without the HTTP API.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting index mode")

	g, ctx := errgroup.WithContext(ctx)

	if _, err := a.startIndexer(ctx, g, deps); err != nil {
		return fmt.Errorf("index mode: %w", err)
	}

	return g.Wait()
}

// MonitorMode relays governance events from Redis to the notification
// channels. It needs neither Postgres nor the chain endpoint; another
// replica runs the indexer that produces the events.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startEventRelay(ctx, g, deps)

	return g.Wait()
}

// FullMode starts all subsystems: the indexer, the HTTP API, the WebSocket
// hub, and the notification relay.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	var triggerCh chan<- struct{}
	if a.cfg.Indexer.Enabled {
		scraper, err := a.startIndexer(ctx, g, deps)
		if err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
		triggerCh = scraper.Trigger()
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, triggerCh)
	}

	return g.Wait()
}

// startIndexer builds the proposal scraper, archiver, and health publisher
// and launches the indexer orchestrator on the errgroup. It returns the
// scraper so callers can wire the manual reindex trigger.
func (a *App) startIndexer(ctx context.Context, g *errgroup.Group, deps *Dependencies) (*indexer.ProposalScraper, error) {
	if deps.ProposalStore == nil {
		return nil, fmt.Errorf("indexer requires postgres")
	}
	if deps.AssetDAO == nil {
		return nil, fmt.Errorf("indexer requires a chain endpoint")
	}

	nodeSvc := service.NewAINodeService(
		deps.AINodeStore, deps.DelegationStore, deps.VoteStore, a.logger,
	)

	scraper := indexer.NewProposalScraper(
		deps.AssetDAO,
		deps.ProposalStore,
		deps.ProposalCache,
		deps.Resolver,
		deps.SignalBus,
		deps.LockManager,
		deps.Notifier,
		nodeSvc,
		a.logger,
	).WithBatchSize(a.cfg.Indexer.BatchSize).
		WithLockTTL(a.cfg.Indexer.LeaderLockTTL.Duration)

	var archiver *indexer.Archiver
	if deps.Archiver != nil {
		archiver = indexer.NewArchiver(deps.Archiver, a.cfg.Indexer.RetentionDays, a.logger)
	}

	tokenSvc := service.NewTokenService(
		deps.Token,
		deps.ChainClient,
		deps.BalanceCache,
		deps.ProposalStore,
		deps.DelegationStore,
		deps.AINodeStore,
		a.logger,
	)

	orch := indexer.NewOrchestrator(
		scraper,
		archiver,
		tokenSvc,
		deps.SignalBus,
		a.cfg.Indexer.PollInterval.Duration,
		30*time.Second,
		a.cfg.Indexer.ArchiveCron,
		a.logger,
	)

	g.Go(func() error {
		return orch.Run(ctx)
	})

	return scraper, nil
}

// startHTTPServer wires all handlers and launches the API server together
// with the WebSocket hub. triggerCh, when non-nil, connects the reindex
// endpoint to the scraper loop.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, triggerCh chan<- struct{}) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	proposalSvc := service.NewProposalService(
		deps.ProposalStore, deps.VoteStore, deps.ProposalCache,
		deps.AssetDAO, deps.Resolver, a.logger,
	)
	nodeSvc := service.NewAINodeService(
		deps.AINodeStore, deps.DelegationStore, deps.VoteStore, a.logger,
	)
	tokenSvc := service.NewTokenService(
		deps.Token, deps.ChainClient, deps.BalanceCache,
		deps.ProposalStore, deps.DelegationStore, deps.AINodeStore,
		a.logger,
	)

	// Mutation services only exist when an operator key is configured.
	var voteSvc *service.VoteService
	var delegationSvc *service.DelegationService
	if deps.TxSender != nil {
		voteSvc = service.NewVoteService(
			deps.ProposalStore, deps.VoteStore, deps.ProposalCache,
			deps.TxSender, deps.Resolver, deps.SignalBus, deps.AuditStore,
			a.logger,
		)
		delegationSvc = service.NewDelegationService(
			deps.DelegationStore, deps.AINodeStore, deps.TxSender,
			deps.SignalBus, a.logger,
		)
	} else {
		a.logger.InfoContext(ctx, "no operator key configured, mutation endpoints disabled")
		delegationSvc = service.NewDelegationService(
			deps.DelegationStore, deps.AINodeStore, nil,
			deps.SignalBus, a.logger,
		)
	}

	indexerH := handler.NewIndexerHandler(a.logger)
	if triggerCh != nil {
		indexerH = indexerH.WithTriggerChannel(triggerCh)
	}

	var creator handler.ProposalCreator
	var mutator handler.VoteService
	if voteSvc != nil {
		creator = voteSvc
		mutator = voteSvc
	}

	healthH := handler.NewHealthHandler(a.logger)
	for name, probe := range deps.HealthProbes {
		healthH = healthH.WithCheck(name, probe)
	}

	handlers := server.Handlers{
		Health:      healthH,
		Status:      handler.NewStatusHandler(a.cfg.Mode, startedAt),
		Proposals:   handler.NewProposalHandler(proposalSvc, creator, a.logger),
		Votes:       handler.NewVoteHandler(mutator, a.logger),
		Delegations: handler.NewDelegationHandler(delegationSvc, deps.TxSender != nil, a.logger),
		AINodes:     handler.NewAINodeHandler(nodeSvc, a.logger),
		Tokens:      handler.NewTokenHandler(tokenSvc, a.logger),
		Audit:       handler.NewAuditHandler(deps.AuditStore, a.logger),
		Archive:     handler.NewArchiveHandler(deps.BlobReader, a.logger),
		Indexer:     indexerH,
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Duration(a.cfg.Server.RateWindowSec) * time.Second,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startEventRelay subscribes to every governance channel and forwards
// noteworthy events to the configured notification senders.
func (a *App) startEventRelay(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	channels := []string{
		domain.ChannelProposals,
		domain.ChannelVotes,
		domain.ChannelDelegations,
		domain.ChannelAINodes,
		domain.ChannelHealth,
	}
	for _, channel := range channels {
		g.Go(func() error {
			ch, err := deps.SignalBus.Subscribe(ctx, channel)
			if err != nil {
				return fmt.Errorf("event relay: subscribe %s: %w", channel, err)
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case payload, ok := <-ch:
					if !ok {
						return nil
					}
					a.relayEvent(ctx, deps, payload)
				}
			}
		})
	}
}

// relayEvent forwards a single bus payload to the notifier. Malformed
// payloads are logged and dropped.
func (a *App) relayEvent(ctx context.Context, deps *Dependencies, payload []byte) {
	var ev domain.GovernanceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.logger.WarnContext(ctx, "event relay: undecodable payload",
			slog.String("error", err.Error()),
		)
		return
	}
	title := "Governance event"
	if ev.ProposalID > 0 {
		title = fmt.Sprintf("Proposal #%d", ev.ProposalID)
	}
	if err := deps.Notifier.Notify(ctx, ev.Type, title, string(payload)); err != nil {
		a.logger.WarnContext(ctx, "event relay: notify failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
