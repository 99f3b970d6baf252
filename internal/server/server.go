package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/server/handler"
	"github.com/dloopdao/governd/internal/server/middleware"
	"github.com/dloopdao/governd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per window per client IP; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Status      *handler.StatusHandler
	Proposals   *handler.ProposalHandler
	Votes       *handler.VoteHandler
	Delegations *handler.DelegationHandler
	AINodes     *handler.AINodeHandler
	Tokens      *handler.TokenHandler
	Audit       *handler.AuditHandler
	Archive     *handler.ArchiveHandler
	Indexer     *handler.IndexerHandler
}

// Server is the headless HTTP + WebSocket API server for the governance
// dashboard backend.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check and status (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Proposal read endpoints.
	mux.HandleFunc("GET /api/proposals", handlers.Proposals.ListProposals)
	mux.HandleFunc("GET /api/proposals/{id}", handlers.Proposals.GetProposal)
	mux.HandleFunc("GET /api/proposals/{id}/stats", handlers.Proposals.GetStats)
	mux.HandleFunc("GET /api/proposals/{id}/votes", handlers.Proposals.ListVotes)

	// Proposal mutation endpoints.
	mux.HandleFunc("POST /api/proposals", handlers.Proposals.CreateProposal)
	mux.HandleFunc("POST /api/proposals/{id}/vote", handlers.Votes.CastVote)
	mux.HandleFunc("POST /api/proposals/{id}/execute", handlers.Votes.ExecuteProposal)
	mux.HandleFunc("POST /api/proposals/{id}/cancel", handlers.Votes.CancelProposal)

	// Delegation endpoints.
	mux.HandleFunc("GET /api/delegations", handlers.Delegations.ListDelegations)
	mux.HandleFunc("POST /api/delegations", handlers.Delegations.CreateDelegation)

	// AI node endpoints.
	mux.HandleFunc("GET /api/ainodes", handlers.AINodes.ListAINodes)
	mux.HandleFunc("GET /api/ainodes/{id}", handlers.AINodes.GetAINode)

	// Token and protocol endpoints.
	mux.HandleFunc("GET /api/token/balance/{address}", handlers.Tokens.GetBalance)
	mux.HandleFunc("GET /api/token/supply", handlers.Tokens.GetSupply)
	mux.HandleFunc("GET /api/protocol/health", handlers.Tokens.GetProtocolHealth)

	// Governance audit trail.
	mux.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)

	// Cold-storage archive browsing.
	mux.HandleFunc("GET /api/archive", handlers.Archive.ListArchive)
	mux.HandleFunc("GET /api/archive/{path...}", handlers.Archive.GetArchiveObject)

	// Manual reindex trigger.
	mux.HandleFunc("POST /api/indexer/sync", handlers.Indexer.TriggerSync)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply rate limiting (skips if disabled or no limiter is wired).
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
