package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

// StatsCache implements domain.StatsCache using JSON values with a fixed TTL.
// Game info lives at "game:info"; per-player stats at "stats:{address}"
// (address lowercased so lookups are case-insensitive).
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatsCache creates a StatsCache backed by the given Client.
func NewStatsCache(c *Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: c.Underlying(), ttl: ttl}
}

const gameInfoKey = "game:info"

func statsKey(player string) string {
	return "stats:" + strings.ToLower(player)
}

// SetGameInfo stores the contract snapshot.
func (sc *StatsCache) SetGameInfo(ctx context.Context, info domain.GameInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("redis: marshal game info: %w", err)
	}
	if err := sc.rdb.Set(ctx, gameInfoKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set game info: %w", err)
	}
	return nil
}

// GetGameInfo returns the cached contract snapshot, or domain.ErrNotFound
// when it has expired or was never set.
func (sc *StatsCache) GetGameInfo(ctx context.Context) (domain.GameInfo, error) {
	data, err := sc.rdb.Get(ctx, gameInfoKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameInfo{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.GameInfo{}, fmt.Errorf("redis: get game info: %w", err)
	}

	var info domain.GameInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.GameInfo{}, fmt.Errorf("redis: unmarshal game info: %w", err)
	}
	return info, nil
}

// SetPlayerStats stores a player's aggregate counters.
func (sc *StatsCache) SetPlayerStats(ctx context.Context, player string, stats domain.PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("redis: marshal stats %s: %w", player, err)
	}
	if err := sc.rdb.Set(ctx, statsKey(player), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set stats %s: %w", player, err)
	}
	return nil
}

// GetPlayerStats returns the cached counters for a player, or
// domain.ErrNotFound on a miss.
func (sc *StatsCache) GetPlayerStats(ctx context.Context, player string) (domain.PlayerStats, error) {
	data, err := sc.rdb.Get(ctx, statsKey(player)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PlayerStats{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("redis: get stats %s: %w", player, err)
	}

	var stats domain.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.PlayerStats{}, fmt.Errorf("redis: unmarshal stats %s: %w", player, err)
	}
	return stats, nil
}

// InvalidatePlayer drops a player's cached counters so the next read goes to
// the contract. Called after a resolution changes the player's record.
func (sc *StatsCache) InvalidatePlayer(ctx context.Context, player string) error {
	if err := sc.rdb.Del(ctx, statsKey(player)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate stats %s: %w", player, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StatsCache = (*StatsCache)(nil)
