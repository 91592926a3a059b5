package handler

import (
	"encoding/json"
	"net/http"

	"github.com/alanyoungcy/predictbot/internal/service"
)

// PoolHandler serves prize pool operations.
type PoolHandler struct {
	guesses *service.GuessService
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(guesses *service.GuessService) *PoolHandler {
	return &PoolHandler{guesses: guesses}
}

type fundRequest struct {
	// Amount in whole native units, e.g. "0.5".
	Amount string `json:"amount"`
}

// Fund deposits native currency into the prize pool. Owner only.
// POST /api/pool/fund
func (h *PoolHandler) Fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txHash, err := h.guesses.FundPool(r.Context(), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx_hash": txHash})
}
