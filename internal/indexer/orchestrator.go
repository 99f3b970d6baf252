package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dloopdao/governd/internal/domain"
)

// HealthProvider assembles the protocol-wide health summary.
type HealthProvider interface {
	ProtocolHealth(ctx context.Context) (domain.ProtocolHealth, error)
}

// Orchestrator manages the indexer goroutines: proposal scraping, health
// publishing, and cold-storage archival.
type Orchestrator struct {
	scraper        *ProposalScraper
	archiver       *Archiver
	health         HealthProvider
	bus            domain.SignalBus
	pollInterval   time.Duration
	healthInterval time.Duration
	archiveCron    string
	logger         *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. archiver and health may be
// nil; the corresponding loops are not started.
func NewOrchestrator(
	scraper *ProposalScraper,
	archiver *Archiver,
	health HealthProvider,
	bus domain.SignalBus,
	pollInterval time.Duration,
	healthInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scraper:        scraper,
		archiver:       archiver,
		health:         health,
		bus:            bus,
		pollInterval:   pollInterval,
		healthInterval: healthInterval,
		archiveCron:    archiveCron,
		logger:         logger,
	}
}

// Run starts all sub-loops as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any goroutine returns a
// non-context error, the errgroup cancels the shared context and Run returns
// that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("indexer orchestrator starting",
		slog.Duration("poll_interval", o.pollInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting proposal scraper loop")
		err := o.scraper.RunLoop(ctx, o.pollInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("proposal scraper: %w", err)
	})

	if o.health != nil {
		g.Go(func() error {
			o.logger.Info("starting health publisher loop")
			err := o.runHealthLoop(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("health publisher: %w", err)
		})
	}

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("indexer orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("indexer orchestrator stopped cleanly")
	return nil
}

// runHealthLoop periodically recomputes the protocol health summary and
// publishes it for WS fan-out. Failures are logged and retried next tick.
func (o *Orchestrator) runHealthLoop(ctx context.Context) error {
	interval := o.healthInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("health publisher loop stopped")
			return ctx.Err()
		case <-ticker.C:
			h, err := o.health.ProtocolHealth(ctx)
			if err != nil {
				o.logger.Error("health refresh failed", slog.String("error", err.Error()))
				continue
			}

			detail, err := json.Marshal(h)
			if err != nil {
				continue
			}
			payload, err := json.Marshal(domain.GovernanceEvent{
				Type:    "health_updated",
				Payload: detail,
				At:      time.Now().UTC(),
			})
			if err != nil {
				continue
			}
			if err := o.bus.Publish(ctx, domain.ChannelHealth, payload); err != nil {
				o.logger.Error("health publish failed", slog.String("error", err.Error()))
			}
		}
	}
}
