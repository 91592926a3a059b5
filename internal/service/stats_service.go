// Package service composes the gateway, coordinator, stores and bus into the
// operations the API and background modes expose.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/game"
)

// Bus channel names shared by services and the websocket hub.
const (
	ChannelLifecycle = "lifecycle"
	ChannelStats     = "stats"
	ChannelPool      = "pool"
)

// StatsService serves contract snapshots (prize pool, fees, supported assets,
// per-player counters) from the Redis cache, refreshing from the chain on a
// fixed interval and on demand after resolutions.
type StatsService struct {
	gw      *game.Gateway
	cache   domain.StatsCache
	bus     domain.SignalBus
	refresh time.Duration
	logger  *slog.Logger
}

// NewStatsService creates a StatsService.
func NewStatsService(gw *game.Gateway, cache domain.StatsCache, bus domain.SignalBus, refresh time.Duration, logger *slog.Logger) *StatsService {
	return &StatsService{
		gw:      gw,
		cache:   cache,
		bus:     bus,
		refresh: refresh,
		logger:  logger.With("component", "stats"),
	}
}

// GameInfo returns the contract snapshot, preferring the cache.
func (s *StatsService) GameInfo(ctx context.Context) (domain.GameInfo, error) {
	info, err := s.cache.GetGameInfo(ctx)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("game info cache read failed", "error", err)
	}
	return s.RefreshGameInfo(ctx)
}

// RefreshGameInfo fetches the snapshot from the contract, caches it, and
// publishes it on the pool channel.
func (s *StatsService) RefreshGameInfo(ctx context.Context) (domain.GameInfo, error) {
	info, err := s.gw.GameInfo(ctx)
	if err != nil {
		return domain.GameInfo{}, err
	}
	if err := s.cache.SetGameInfo(ctx, info); err != nil {
		s.logger.Warn("game info cache write failed", "error", err)
	}
	s.publish(ctx, ChannelPool, info)
	return info, nil
}

// PlayerStats returns a player's aggregate counters, preferring the cache.
func (s *StatsService) PlayerStats(ctx context.Context, player string) (domain.PlayerStats, error) {
	if !common.IsHexAddress(player) {
		return domain.PlayerStats{}, fmt.Errorf("service: %w: invalid address %q", domain.ErrPrecondition, player)
	}

	stats, err := s.cache.GetPlayerStats(ctx, player)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("player stats cache read failed", "player", player, "error", err)
	}
	return s.RefreshPlayer(ctx, player)
}

// RefreshPlayer fetches a player's counters from the contract, caches them,
// and publishes them on the stats channel.
func (s *StatsService) RefreshPlayer(ctx context.Context, player string) (domain.PlayerStats, error) {
	stats, err := s.gw.PlayerStats(ctx, common.HexToAddress(player))
	if err != nil {
		return domain.PlayerStats{}, err
	}
	if err := s.cache.SetPlayerStats(ctx, player, stats); err != nil {
		s.logger.Warn("player stats cache write failed", "player", player, "error", err)
	}
	s.publish(ctx, ChannelStats, struct {
		Player string             `json:"player"`
		Stats  domain.PlayerStats `json:"stats"`
	}{Player: player, Stats: stats})
	return stats, nil
}

// Invalidate drops a player's cached counters; the next read re-fetches.
func (s *StatsService) Invalidate(ctx context.Context, player string) {
	if err := s.cache.InvalidatePlayer(ctx, player); err != nil {
		s.logger.Warn("stats invalidation failed", "player", player, "error", err)
	}
}

// Cooldown returns how long until the player may guess again.
func (s *StatsService) Cooldown(ctx context.Context, player string) (time.Duration, error) {
	if !common.IsHexAddress(player) {
		return 0, fmt.Errorf("service: %w: invalid address %q", domain.ErrPrecondition, player)
	}
	return s.gw.CooldownRemaining(ctx, common.HexToAddress(player))
}

// RunLoop refreshes the game snapshot on the configured interval until ctx
// ends.
func (s *StatsService) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RefreshGameInfo(ctx); err != nil {
				s.logger.Error("game info refresh failed", "error", err)
			}
		}
	}
}

func (s *StatsService) publish(ctx context.Context, channel string, v any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("publish marshal failed", "channel", channel, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.Warn("publish failed", "channel", channel, "error", err)
	}
}
