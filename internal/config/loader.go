package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GOVERND_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GOVERND_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "GOVERND_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "GOVERND_CHAIN_ID")
	setStr(&cfg.Chain.AssetDAOAddress, "GOVERND_CHAIN_ASSET_DAO_ADDRESS")
	setStr(&cfg.Chain.TokenAddress, "GOVERND_CHAIN_TOKEN_ADDRESS")
	setDuration(&cfg.Chain.CallTimeout, "GOVERND_CHAIN_CALL_TIMEOUT")
	setInt(&cfg.Chain.MaxRetries, "GOVERND_CHAIN_MAX_RETRIES")

	// ── Signer ──
	setStr(&cfg.Signer.PrivateKey, "GOVERND_SIGNER_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "GOVERND_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "GOVERND_SIGNER_KEY_PASSWORD")

	// ── Governance ──
	setFloat64(&cfg.Governance.QuorumThreshold, "GOVERND_GOVERNANCE_QUORUM_THRESHOLD")
	setDuration(&cfg.Governance.VotingPeriod, "GOVERND_GOVERNANCE_VOTING_PERIOD")

	// ── Database ──
	setStr(&cfg.Database.DSN, "GOVERND_DATABASE_DSN")
	setStr(&cfg.Database.Host, "GOVERND_DATABASE_HOST")
	setInt(&cfg.Database.Port, "GOVERND_DATABASE_PORT")
	setStr(&cfg.Database.Database, "GOVERND_DATABASE_NAME")
	setStr(&cfg.Database.User, "GOVERND_DATABASE_USER")
	setStr(&cfg.Database.Password, "GOVERND_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "GOVERND_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "GOVERND_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "GOVERND_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "GOVERND_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "GOVERND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GOVERND_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GOVERND_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GOVERND_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "GOVERND_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "GOVERND_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "GOVERND_REDIS_CACHE_TTL_MINUTES")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "GOVERND_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "GOVERND_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "GOVERND_S3_REGION")
	setStr(&cfg.S3.Bucket, "GOVERND_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "GOVERND_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "GOVERND_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "GOVERND_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "GOVERND_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.KeyPrefix, "GOVERND_S3_KEY_PREFIX")

	// ── Indexer ──
	setBool(&cfg.Indexer.Enabled, "GOVERND_INDEXER_ENABLED")
	setDuration(&cfg.Indexer.PollInterval, "GOVERND_INDEXER_POLL_INTERVAL")
	setInt(&cfg.Indexer.BatchSize, "GOVERND_INDEXER_BATCH_SIZE")
	setInt(&cfg.Indexer.RetentionDays, "GOVERND_INDEXER_RETENTION_DAYS")
	setStr(&cfg.Indexer.ArchiveCron, "GOVERND_INDEXER_ARCHIVE_CRON")
	setDuration(&cfg.Indexer.LeaderLockTTL, "GOVERND_INDEXER_LEADER_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "GOVERND_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "GOVERND_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "GOVERND_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "GOVERND_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "GOVERND_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateWindowSec, "GOVERND_SERVER_RATE_WINDOW_SEC")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "GOVERND_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "GOVERND_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "GOVERND_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "GOVERND_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "GOVERND_MODE")
	setStr(&cfg.LogLevel, "GOVERND_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
