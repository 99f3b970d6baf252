package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/dloopdao/governd/internal/blob/s3"
	"github.com/dloopdao/governd/internal/cache/redis"
	"github.com/dloopdao/governd/internal/chain"
	"github.com/dloopdao/governd/internal/config"
	"github.com/dloopdao/governd/internal/crypto"
	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
	"github.com/dloopdao/governd/internal/notify"
	"github.com/dloopdao/governd/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	ProposalStore   domain.ProposalStore
	VoteStore       domain.VoteStore
	DelegationStore domain.DelegationStore
	AINodeStore     domain.AINodeStore
	AuditStore      domain.AuditStore

	// Caches
	ProposalCache domain.ProposalCache
	BalanceCache  domain.BalanceCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Chain
	ChainClient *chain.Client
	AssetDAO    *chain.AssetDAO
	Token       *chain.Token
	TxSender    *chain.TxSender // nil when no operator key is configured

	// Governance
	Resolver *governance.Resolver

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.ArchiveImpl

	// Notifications
	Notifier *notify.Notifier

	// HealthProbes are dependency liveness checks keyed by name, surfaced
	// on the health endpoint.
	HealthProbes map[string]func(context.Context) error
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "server", "index", "full":
		return true
	default:
		return false
	}
}

// needsChain returns true for modes that talk to the EVM endpoint. Monitor
// mode only relays Redis events and notifications.
func needsChain(mode string) bool {
	return mode != "monitor"
}

// needsS3 returns true for modes that run the cold-storage archiver.
func needsS3(mode string) bool {
	switch mode {
	case "index", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Resolver: governance.NewResolver(
			cfg.Governance.QuorumThreshold,
			cfg.Governance.VotingPeriod.Duration,
		),
		HealthProbes: make(map[string]func(context.Context) error),
	}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		// Run migrations if enabled.
		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ProposalStore = postgres.NewProposalStore(pool)
		deps.VoteStore = postgres.NewVoteStore(pool)
		deps.DelegationStore = postgres.NewDelegationStore(pool)
		deps.AINodeStore = postgres.NewAINodeStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.HealthProbes["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	balanceTTL := time.Duration(0)
	if cfg.Redis.CacheTTLMinutes > 0 {
		balanceTTL = time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
	}

	deps.ProposalCache = redis.NewProposalCache(redisClient)
	deps.BalanceCache = redis.NewBalanceCache(redisClient, balanceTTL)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.HealthProbes["redis"] = redisClient.Ping

	// --- Chain (only for modes that read or write the contracts) ---
	if needsChain(cfg.Mode) {
		chainClient, err := chain.New(ctx, chain.ClientConfig{
			RPCURL:      cfg.Chain.RPCURL,
			ChainID:     cfg.Chain.ChainID,
			CallTimeout: cfg.Chain.CallTimeout.Duration,
			MaxRetries:  cfg.Chain.MaxRetries,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.ChainClient = chainClient

		deps.AssetDAO, err = chain.NewAssetDAO(chainClient, cfg.Chain.AssetDAOAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: asset dao: %w", err)
		}
		deps.Token, err = chain.NewToken(chainClient, cfg.Chain.TokenAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: token: %w", err)
		}

		// Operator key is optional; without it the daemon is read-only.
		keyCfg := crypto.KeyConfig{
			RawPrivateKey:    cfg.Signer.PrivateKey,
			EncryptedKeyPath: cfg.Signer.EncryptedKeyPath,
			KeyPassword:      cfg.Signer.KeyPassword,
		}
		if keyCfg.Configured() {
			key, err := crypto.LoadECDSAKey(keyCfg)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: operator key: %w", err)
			}
			deps.TxSender = chain.NewTxSender(chainClient, deps.AssetDAO, deps.Token, key)
		}
	}

	// --- S3 blob storage (only for modes that run the archiver) ---
	if needsS3(cfg.Mode) && cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			KeyPrefix:      cfg.S3.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		if deps.ProposalStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.ProposalStore, deps.AuditStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
