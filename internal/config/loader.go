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
// built-in defaults, applies PREDICTBOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known PREDICTBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "PREDICTBOT_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "PREDICTBOT_CHAIN_ID")
	setStr(&cfg.Chain.ExplorerURL, "PREDICTBOT_CHAIN_EXPLORER_URL")
	setStr(&cfg.Chain.NativeSymbol, "PREDICTBOT_CHAIN_NATIVE_SYMBOL")
	setInt(&cfg.Chain.NativeDecimals, "PREDICTBOT_CHAIN_NATIVE_DECIMALS")

	// ── Contract ──
	setStr(&cfg.Contract.Address, "PREDICTBOT_CONTRACT_ADDRESS")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PREDICTBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PREDICTBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PREDICTBOT_WALLET_KEY_PASSWORD")

	// ── Game ──
	setDuration(&cfg.Game.PollInterval, "PREDICTBOT_GAME_POLL_INTERVAL")
	setDuration(&cfg.Game.ResolveTimeout, "PREDICTBOT_GAME_RESOLVE_TIMEOUT")
	setDuration(&cfg.Game.StatsRefresh, "PREDICTBOT_GAME_STATS_REFRESH")
	setDuration(&cfg.Game.SubmissionLockTTL, "PREDICTBOT_GAME_SUBMISSION_LOCK_TTL")
	setInt(&cfg.Game.ArchiveRetentionDays, "PREDICTBOT_GAME_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Game.ArchiveInterval, "PREDICTBOT_GAME_ARCHIVE_INTERVAL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PREDICTBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDICTBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PREDICTBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLSeconds, "PREDICTBOT_REDIS_CACHE_TTL_SECONDS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PREDICTBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PREDICTBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTBOT_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PREDICTBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PREDICTBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDICTBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PREDICTBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PREDICTBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PREDICTBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PREDICTBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDICTBOT_MODE")
	setStr(&cfg.LogLevel, "PREDICTBOT_LOG_LEVEL")
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
