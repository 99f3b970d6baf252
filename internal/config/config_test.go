package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.AssetDAOAddress = "0x1111111111111111111111111111111111111111"
	cfg.Chain.TokenAddress = "0x2222222222222222222222222222222222222222"
	return cfg
}

func TestValidateDefaultsWithAddresses(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingAddresses(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset_dao_address")
	assert.Contains(t, err.Error(), "token_address")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.LogLevel = "chatty"
	cfg.Governance.QuorumThreshold = 0
	cfg.Server.Port = 99999

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "unknown log_level")
	assert.Contains(t, msg, "quorum_threshold")
	assert.Contains(t, msg, "port must be 1-65535")
	// One bullet per problem.
	assert.Equal(t, 4, strings.Count(msg, "\n  - "))
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Signer.EncryptedKeyPath = "/etc/governd/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")

	cfg.Signer.KeyPassword = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRateLimitWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Server.RateLimit = 100
	cfg.Server.RateWindowSec = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_window_sec")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOVERND_CHAIN_RPC_URL", "https://rpc.example.org")
	t.Setenv("GOVERND_GOVERNANCE_QUORUM_THRESHOLD", "250000")
	t.Setenv("GOVERND_INDEXER_POLL_INTERVAL", "15s")
	t.Setenv("GOVERND_SERVER_CORS_ORIGINS", "https://dash.dloop.org, https://staging.dloop.org")
	t.Setenv("GOVERND_SERVER_ENABLED", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "https://rpc.example.org", cfg.Chain.RPCURL)
	assert.Equal(t, 250000.0, cfg.Governance.QuorumThreshold)
	assert.Equal(t, "15s", cfg.Indexer.PollInterval.Duration.String())
	assert.Equal(t, []string{"https://dash.dloop.org", "https://staging.dloop.org"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.Enabled)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Signer.PrivateKey = "0xdeadbeef"
	cfg.Database.Password = "s3cret"
	cfg.Server.APIKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Signer.PrivateKey)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original untouched.
	assert.Equal(t, "0xdeadbeef", cfg.Signer.PrivateKey)

	// Empty secrets stay empty rather than becoming placeholders.
	assert.Empty(t, red.Redis.Password)
}
