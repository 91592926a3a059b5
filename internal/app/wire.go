package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/predictbot/internal/archive"
	s3blob "github.com/alanyoungcy/predictbot/internal/blob/s3"
	"github.com/alanyoungcy/predictbot/internal/cache/redis"
	"github.com/alanyoungcy/predictbot/internal/chain"
	"github.com/alanyoungcy/predictbot/internal/config"
	predcrypto "github.com/alanyoungcy/predictbot/internal/crypto"
	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/game"
	"github.com/alanyoungcy/predictbot/internal/lifecycle"
	"github.com/alanyoungcy/predictbot/internal/notify"
	"github.com/alanyoungcy/predictbot/internal/service"
	"github.com/alanyoungcy/predictbot/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	EthClient *ethclient.Client
	Gateway   *game.Gateway

	GuessStore  domain.GuessStore
	StatsCache  domain.StatsCache
	SignalBus   domain.SignalBus
	LockManager domain.LockManager

	Archiver *archive.Archiver
	Notifier *notify.Notifier

	Coordinator *lifecycle.Coordinator
	StatsSvc    *service.StatsService
	GuessSvc    *service.GuessService

	// Raw clients kept for health checks.
	PG    *postgres.Client
	Redis *redis.Client
}

// needsWallet returns true for modes that submit transactions.
func needsWallet(mode string) bool {
	return mode == "serve" || mode == "full"
}

// needsPostgres returns true for modes that persist attempts.
func needsPostgres(mode string) bool {
	return mode == "serve" || mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Chain ---
	ec, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, ec.Close)
	deps.EthClient = ec

	key, err := loadWalletKey(cfg, mode)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}

	deps.Gateway = game.NewGateway(
		ec,
		common.HexToAddress(cfg.Contract.Address),
		big.NewInt(cfg.Chain.ChainID),
		key,
		logger,
	)

	// --- PostgreSQL ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.PG = pgClient
		deps.GuessStore = postgres.NewGuessStore(pgClient.Pool())
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
	deps.Redis = redisClient

	cacheTTL := 30 * time.Second
	if cfg.Redis.CacheTTLSeconds > 0 {
		cacheTTL = time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
	}
	deps.StatsCache = redis.NewStatsCache(redisClient, cacheTTL)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Coordinator = lifecycle.NewCoordinator(
		deps.Gateway,
		lifecycle.NewClock(),
		lifecycle.Config{
			ChainID:        cfg.Chain.ChainID,
			PollInterval:   cfg.Game.PollInterval.Duration,
			ResolveTimeout: cfg.Game.ResolveTimeout.Duration,
		},
		logger,
	)
	deps.StatsSvc = service.NewStatsService(
		deps.Gateway, deps.StatsCache, deps.SignalBus,
		cfg.Game.StatsRefresh.Duration, logger,
	)
	if deps.GuessStore != nil && key != nil {
		deps.GuessSvc = service.NewGuessService(
			deps.Coordinator, deps.Gateway, deps.GuessStore,
			deps.LockManager, deps.SignalBus, deps.Notifier, deps.StatsSvc,
			cfg.Chain.ExplorerURL, cfg.Game.SubmissionLockTTL.Duration, logger,
		)
	}

	// --- S3 archiver ---
	if cfg.S3.Enabled && deps.GuessStore != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = archive.New(deps.GuessStore, s3blob.NewWriter(s3Client), logger)
	}

	return deps, cleanup, nil
}

// loadWalletKey resolves the signing key for modes that submit transactions.
// Read-only modes run without one.
func loadWalletKey(cfg *config.Config, mode string) (*ecdsa.PrivateKey, error) {
	if !needsWallet(mode) {
		return nil, nil
	}
	return predcrypto.LoadSigningKey(predcrypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
}
