package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/service"
)

// GameHandler serves the contract's public parameters.
type GameHandler struct {
	stats        *service.StatsService
	chainID      int64
	nativeSymbol string
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(stats *service.StatsService, chainID int64, nativeSymbol string) *GameHandler {
	return &GameHandler{stats: stats, chainID: chainID, nativeSymbol: nativeSymbol}
}

// GetGame returns the prize pool, entry fee, supported assets and owner.
// GET /api/game
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	info, err := h.stats.GameInfo(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":          h.chainID,
		"native_symbol":     h.nativeSymbol,
		"prize_pool":        domain.FormatWei(info.PrizePool),
		"prize_pool_wei":    info.PrizePool.String(),
		"total_fee":         domain.FormatWei(info.TotalFee),
		"total_fee_wei":     info.TotalFee.String(),
		"supported_cryptos": info.SupportedCryptos,
		"owner":             info.Owner,
		"fetched_at":        info.FetchedAt.Format(time.RFC3339),
	})
}
