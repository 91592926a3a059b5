package handler

import (
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/lifecycle"
	"github.com/alanyoungcy/predictbot/internal/service"
)

// GuessHandler serves guess submission, the live lifecycle snapshot, and
// attempt history.
type GuessHandler struct {
	guesses *service.GuessService
}

// NewGuessHandler creates a GuessHandler.
func NewGuessHandler(guesses *service.GuessService) *GuessHandler {
	return &GuessHandler{guesses: guesses}
}

type submitRequest struct {
	Crypto string `json:"crypto"`
	Price  string `json:"price"`
	Test   bool   `json:"test"`
}

// Submit starts a guess lifecycle and returns 202 with the attempt record.
// Returns 409 while another lifecycle is active.
// POST /api/guesses
func (h *GuessHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Crypto == "" {
		writeError(w, http.StatusBadRequest, "crypto is required")
		return
	}

	rec, err := h.guesses.Submit(r.Context(), req.Crypto, req.Price, req.Test)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, guessView(rec))
}

// GetActive returns the current lifecycle snapshot.
// GET /api/guesses/active
func (h *GuessHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateView(h.guesses.Active()))
}

// ResetActive clears a terminal lifecycle state back to idle.
// DELETE /api/guesses/active
func (h *GuessHandler) ResetActive(w http.ResponseWriter, r *http.Request) {
	if err := h.guesses.Reset(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(h.guesses.Active()))
}

// Get returns one attempt by id.
// GET /api/guesses/{id}
func (h *GuessHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.guesses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guessView(rec))
}

// List returns a player's attempt history, newest first.
// GET /api/guesses?player=0x...
func (h *GuessHandler) List(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		writeError(w, http.StatusBadRequest, "player query parameter is required")
		return
	}

	recs, err := h.guesses.History(r.Context(), player, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		views = append(views, guessView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"guesses": views, "count": len(views)})
}

// Events replays lifecycle transitions from the durable stream so clients can
// catch up after a websocket gap.
// GET /api/guesses/events?after=<stream id>&limit=n
func (h *GuessHandler) Events(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}

	msgs, err := h.guesses.Events(r.Context(), after, parseListOpts(r).Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]map[string]any, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, map[string]any{
			"id":      msg.ID,
			"payload": json.RawMessage(msg.Payload),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views, "count": len(views)})
}

// ---------------------------------------------------------------------------
// View rendering. Big integers are rendered as decimal strings so clients
// never hit JSON number precision limits.
// ---------------------------------------------------------------------------

func bigView(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func guessView(rec domain.GuessRecord) map[string]any {
	view := map[string]any{
		"id":            rec.ID,
		"player":        rec.Player,
		"crypto":        rec.Crypto,
		"guessed_price": domain.FormatPrice(rec.GuessedPrice),
		"tx_hash":       rec.TxHash,
		"request_id":    bigView(rec.RequestID),
		"phase":         string(rec.Phase),
		"tier":          rec.Tier,
		"submitted_at":  rec.SubmittedAt.Format(time.RFC3339),
	}
	if rec.FailReason != "" {
		view["fail_reason"] = rec.FailReason
	}
	if rec.SettledAt != nil {
		view["settled_at"] = rec.SettledAt.Format(time.RFC3339)
	}
	if rec.Resolution != nil {
		view["resolution"] = resolutionView(*rec.Resolution)
	}
	return view
}

func resolutionView(res domain.Resolution) map[string]any {
	return map[string]any{
		"request_id":    bigView(res.RequestID),
		"guessed_price": domain.FormatPrice(res.GuessedPrice),
		"actual_price":  domain.FormatPrice(res.ActualPrice),
		"accuracy_bps":  res.AccuracyBps,
		"reward":        domain.FormatWei(res.Reward),
		"won":           res.Won,
		"tx_hash":       res.TxHash,
		"block_number":  res.BlockNumber,
	}
}

func stateView(state lifecycle.State) map[string]any {
	view := map[string]any{
		"phase":      string(state.Phase),
		"attempt_id": state.AttemptID,
		"crypto":     state.Crypto,
		"tx_hash":    state.TxHash,
		"request_id": bigView(state.RequestID),
		"updated_at": state.UpdatedAt.Format(time.RFC3339),
	}
	if state.Reason != "" {
		view["reason"] = state.Reason
	}
	if state.Resolution != nil {
		view["resolution"] = resolutionView(*state.Resolution)
		view["tier"] = state.Tier.Number
		view["tier_label"] = state.Tier.Label()
	}
	return view
}
