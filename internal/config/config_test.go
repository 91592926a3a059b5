package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Contract.Address = "0x1111111111111111111111111111111111111111"
	cfg.Wallet.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	return cfg
}

func TestDefaultsValidateWithRequiredFields(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(50312), cfg.Chain.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Game.PollInterval.Duration)
	assert.Equal(t, 120*time.Second, cfg.Game.ResolveTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Game.StatsRefresh.Duration)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "spectate"
	cfg.Chain.RPCURL = ""
	cfg.Contract.Address = "not-an-address"
	cfg.Game.PollInterval = duration{0}
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "spectate"`)
	assert.Contains(t, msg, "chain: rpc_url must not be empty")
	assert.Contains(t, msg, "not a valid hex address")
	assert.Contains(t, msg, "game: poll_interval must be > 0")
	assert.Contains(t, msg, "redis: addr must not be empty")
}

func TestValidateWalletRequirementPerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet = WalletConfig{}

	cfg.Mode = "serve"
	require.Error(t, cfg.Validate())

	// Read-only mode runs without a signing key.
	cfg.Mode = "monitor"
	require.NoError(t, cfg.Validate())

	cfg.Mode = "full"
	cfg.Wallet.EncryptedKeyPath = "/etc/predictbot/key.enc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidateTimeoutMustExceedPoll(t *testing.T) {
	cfg := validConfig()
	cfg.Game.PollInterval = duration{30 * time.Second}
	cfg.Game.ResolveTimeout = duration{30 * time.Second}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve_timeout must exceed poll_interval")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTBOT_CHAIN_RPC_URL", "https://rpc.example.test")
	t.Setenv("PREDICTBOT_CHAIN_ID", "31337")
	t.Setenv("PREDICTBOT_GAME_POLL_INTERVAL", "5s")
	t.Setenv("PREDICTBOT_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("PREDICTBOT_SERVER_CORS_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("PREDICTBOT_MODE", "monitor")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "https://rpc.example.test", cfg.Chain.RPCURL)
	assert.Equal(t, int64(31337), cfg.Chain.ChainID)
	assert.Equal(t, 5*time.Second, cfg.Game.PollInterval.Duration)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "monitor", cfg.Mode)
}

func TestEnvOverridesIgnoreUnsetAndMalformed(t *testing.T) {
	t.Setenv("PREDICTBOT_CHAIN_ID", "not-a-number")
	t.Setenv("PREDICTBOT_GAME_POLL_INTERVAL", "")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, int64(50312), cfg.Chain.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Game.PollInterval.Duration)
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("2m30s")))
	assert.Equal(t, 150*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m30s", string(out))

	require.Error(t, d.UnmarshalText([]byte("soon")))
}
