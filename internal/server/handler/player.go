package handler

import (
	"net/http"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/service"
)

// PlayerHandler serves per-player contract state.
type PlayerHandler struct {
	stats *service.StatsService
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(stats *service.StatsService) *PlayerHandler {
	return &PlayerHandler{stats: stats}
}

// GetStats returns a player's aggregate counters.
// GET /api/players/{address}/stats
func (h *PlayerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	stats, err := h.stats.PlayerStats(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"player":            address,
		"total_guesses":     stats.TotalGuesses,
		"wins":              stats.Wins,
		"total_winnings":    domain.FormatWei(stats.TotalWinnings),
		"best_accuracy_bps": stats.BestAccuracyBps,
	})
}

// GetCooldown returns the seconds until the player may guess again.
// GET /api/players/{address}/cooldown
func (h *PlayerHandler) GetCooldown(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	remaining, err := h.stats.Cooldown(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"player":           address,
		"cooldown_seconds": int64(remaining.Seconds()),
		"cooldown_active":  remaining > 0,
	})
}
