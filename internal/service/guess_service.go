package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/game"
	"github.com/alanyoungcy/predictbot/internal/lifecycle"
	"github.com/alanyoungcy/predictbot/internal/notify"
)

// lifecycleStream is the durable Redis stream mirroring the lifecycle
// channel.
const lifecycleStream = "stream:lifecycle"

// GuessService owns guess submission: it validates input, takes the
// per-player submission lock, records the attempt, runs the lifecycle
// coordinator in the background, and finalizes the row, notifications and
// cached stats when the attempt reaches a terminal state.
type GuessService struct {
	coord       *lifecycle.Coordinator
	gw          *game.Gateway
	store       domain.GuessStore
	locks       domain.LockManager
	bus         domain.SignalBus
	notifier    *notify.Notifier
	stats       *StatsService
	explorerURL string
	lockTTL     time.Duration
	logger      *slog.Logger
}

// NewGuessService creates a GuessService. lockTTL bounds both the Redis
// submission lock and the background run.
func NewGuessService(
	coord *lifecycle.Coordinator,
	gw *game.Gateway,
	store domain.GuessStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	stats *StatsService,
	explorerURL string,
	lockTTL time.Duration,
	logger *slog.Logger,
) *GuessService {
	return &GuessService{
		coord:       coord,
		gw:          gw,
		store:       store,
		locks:       locks,
		bus:         bus,
		notifier:    notifier,
		stats:       stats,
		explorerURL: explorerURL,
		lockTTL:     lockTTL,
		logger:      logger.With("component", "guess"),
	}
}

// Submit validates the guess, records it, and starts the lifecycle in the
// background. The returned record carries the attempt id; progress streams on
// the lifecycle channel and the terminal state lands in the store.
func (s *GuessService) Submit(ctx context.Context, crypto, price string, testPath bool) (domain.GuessRecord, error) {
	scaled, err := domain.ParsePrice(price)
	if err != nil {
		return domain.GuessRecord{}, fmt.Errorf("service: parse price: %w", err)
	}

	if testPath {
		owner, err := s.gw.Owner(ctx)
		if err != nil {
			return domain.GuessRecord{}, err
		}
		if owner != s.gw.From() {
			return domain.GuessRecord{}, fmt.Errorf("service: %w: test submissions require the contract owner", domain.ErrPrecondition)
		}
	}

	// Fast local rejection; the coordinator enforces this again.
	snap := s.coord.Snapshot()
	if snap.Phase != domain.PhaseIdle && !snap.Phase.Terminal() {
		return domain.GuessRecord{}, domain.ErrLifecycleActive
	}

	player := s.gw.From().Hex()
	release, err := s.locks.Acquire(ctx, submitLockKey(player), s.lockTTL)
	if err != nil {
		return domain.GuessRecord{}, err
	}

	rec := domain.GuessRecord{
		ID:           uuid.NewString(),
		Player:       player,
		Crypto:       crypto,
		GuessedPrice: scaled,
		Phase:        domain.PhaseSubmitting,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if relErr := release(ctx); relErr != nil {
			s.logger.Warn("lock release failed", "error", relErr)
		}
		return domain.GuessRecord{}, err
	}

	go s.run(rec, testPath, release)
	return rec, nil
}

func submitLockKey(player string) string {
	return "lock:submit:" + strings.ToLower(player)
}

// run drives one attempt to its terminal state. It is detached from the
// submitting request's context; the lock TTL bounds its lifetime.
func (s *GuessService) run(rec domain.GuessRecord, testPath bool, release func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
	defer cancel()
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("lock release failed", "attempt_id", rec.ID, "error", err)
		}
	}()

	sink := func(state lifecycle.State) {
		s.publishState(ctx, state)
		// The row gets its tx hash and request id as soon as the submission
		// is mined, not only at the terminal update.
		if state.Phase == domain.PhaseAwaitingResolution && state.RequestID != nil {
			if err := s.store.UpdateSubmitted(ctx, rec.ID, state.TxHash, state.RequestID.String()); err != nil {
				s.logger.Warn("submitted update failed", "attempt_id", rec.ID, "error", err)
			}
		}
	}
	state, err := s.coord.Run(ctx, rec.ID, rec.Crypto, rec.GuessedPrice, testPath, sink)
	if err != nil {
		s.logger.Warn("lifecycle ended without resolution",
			"attempt_id", rec.ID, "phase", string(state.Phase), "error", err)
	}
	s.finalize(ctx, rec, state)
}

// publishState mirrors a lifecycle transition to the live channel and the
// durable stream.
func (s *GuessService) publishState(ctx context.Context, state lifecycle.State) {
	payload, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn("state marshal failed", "attempt_id", state.AttemptID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, ChannelLifecycle, payload); err != nil {
		s.logger.Warn("lifecycle publish failed", "error", err)
	}
	if err := s.bus.StreamAppend(ctx, lifecycleStream, payload); err != nil {
		s.logger.Warn("lifecycle stream append failed", "error", err)
	}
}

// finalize persists the terminal state, sends notifications, and refreshes
// cached stats.
func (s *GuessService) finalize(ctx context.Context, rec domain.GuessRecord, state lifecycle.State) {
	now := time.Now().UTC()
	rec.Phase = state.Phase
	rec.TxHash = state.TxHash
	rec.RequestID = state.RequestID
	rec.Resolution = state.Resolution
	rec.Tier = state.Tier.Number
	rec.FailReason = state.Reason
	rec.SettledAt = &now

	if err := s.store.UpdateTerminal(ctx, rec); err != nil {
		s.logger.Error("terminal update failed", "attempt_id", rec.ID, "error", err)
	}

	s.notifyTerminal(ctx, rec, state)

	s.stats.Invalidate(ctx, rec.Player)
	if _, err := s.stats.RefreshPlayer(ctx, rec.Player); err != nil {
		s.logger.Warn("player stats refresh failed", "player", rec.Player, "error", err)
	}
	if _, err := s.stats.RefreshGameInfo(ctx); err != nil {
		s.logger.Warn("game info refresh failed", "error", err)
	}
}

func (s *GuessService) notifyTerminal(ctx context.Context, rec domain.GuessRecord, state lifecycle.State) {
	if s.notifier == nil {
		return
	}

	if state.Phase == domain.PhaseResolved && state.Resolution != nil {
		res := state.Resolution
		title := "Guess lost"
		if res.Won {
			title = "Guess won"
		}
		msg := fmt.Sprintf("%s: guessed %s, actual %s (%.2f%% off)\n%s\nReward: %s\n%s",
			rec.Crypto,
			domain.FormatPrice(res.GuessedPrice),
			domain.FormatPrice(res.ActualPrice),
			float64(res.AccuracyBps)/100,
			state.Tier.Label(),
			domain.FormatWei(res.Reward),
			s.txLink(res.TxHash))
		if err := s.notifier.Notify(ctx, notify.EventGuessResolved, title, msg); err != nil {
			s.logger.Warn("resolution notification failed", "error", err)
		}
		return
	}

	msg := fmt.Sprintf("%s: %s\n%s", rec.Crypto, state.Reason, s.txLink(state.TxHash))
	if err := s.notifier.Notify(ctx, notify.EventGuessFailed, "Guess "+string(state.Phase), msg); err != nil {
		s.logger.Warn("failure notification failed", "error", err)
	}
}

func (s *GuessService) txLink(txHash string) string {
	if txHash == "" || s.explorerURL == "" {
		return ""
	}
	return strings.TrimRight(s.explorerURL, "/") + "/tx/" + txHash
}

// Active returns the current lifecycle snapshot.
func (s *GuessService) Active() lifecycle.State {
	return s.coord.Snapshot()
}

// Reset clears a terminal lifecycle state back to idle.
func (s *GuessService) Reset() error {
	return s.coord.Reset()
}

// Events returns lifecycle transitions from the durable stream, starting
// after lastID. Pass "0" to read from the oldest retained entry.
func (s *GuessService) Events(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	return s.bus.StreamRead(ctx, lifecycleStream, lastID, count)
}

// Get returns one attempt row.
func (s *GuessService) Get(ctx context.Context, id string) (domain.GuessRecord, error) {
	return s.store.GetByID(ctx, id)
}

// History returns a player's attempts, newest first.
func (s *GuessService) History(ctx context.Context, player string, opts domain.ListOpts) ([]domain.GuessRecord, error) {
	return s.store.ListByPlayer(ctx, player, opts)
}

// FundPool deposits native currency into the prize pool. Owner only; the
// amount is a decimal string in whole native units.
func (s *GuessService) FundPool(ctx context.Context, amount string) (string, error) {
	wei, err := domain.ParseUnits(amount, domain.NativeDecimals)
	if err != nil {
		return "", fmt.Errorf("service: parse amount: %w", err)
	}
	if wei.Sign() <= 0 {
		return "", fmt.Errorf("service: %w: amount must be positive", domain.ErrInvalidAmount)
	}

	owner, err := s.gw.Owner(ctx)
	if err != nil {
		return "", err
	}
	if owner != s.gw.From() {
		return "", fmt.Errorf("service: %w: funding requires the contract owner", domain.ErrPrecondition)
	}

	txHash, err := s.gw.FundPool(ctx, wei)
	if err != nil {
		return "", err
	}
	if _, err := s.gw.WaitMined(ctx, txHash); err != nil {
		return "", err
	}

	if s.notifier != nil {
		msg := fmt.Sprintf("Deposited %s into the prize pool\n%s", amount, s.txLink(txHash.Hex()))
		if err := s.notifier.Notify(ctx, notify.EventPoolFunded, "Pool funded", msg); err != nil {
			s.logger.Warn("funding notification failed", "error", err)
		}
	}
	if _, err := s.stats.RefreshGameInfo(ctx); err != nil {
		s.logger.Warn("game info refresh failed", "error", err)
	}
	return txHash.Hex(), nil
}
