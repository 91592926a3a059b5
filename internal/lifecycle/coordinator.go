package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/game"
)

// Gateway is the contract surface the coordinator drives. *game.Gateway
// satisfies it; tests substitute a fake.
type Gateway interface {
	From() common.Address
	Decoder() *game.Decoder
	ChainID(ctx context.Context) (*big.Int, error)
	CooldownRemaining(ctx context.Context, player common.Address) (time.Duration, error)
	TotalFee(ctx context.Context) (*big.Int, error)
	SubmitGuess(ctx context.Context, crypto string, scaledPrice, fee *big.Int, testPath bool) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingGuess(ctx context.Context, requestID *big.Int) (domain.GuessRequest, error)
	ResolutionEvents(ctx context.Context, requestID *big.Int, fromBlock uint64) ([]domain.Resolution, error)
}

// Config holds coordinator timing and the expected network.
type Config struct {
	ChainID        int64
	PollInterval   time.Duration
	ResolveTimeout time.Duration
}

// State is a snapshot of the current (or last) lifecycle attempt. Terminal
// states stick until Reset.
type State struct {
	Phase      domain.Phase
	AttemptID  string
	Crypto     string
	TxHash     string
	RequestID  *big.Int
	Resolution *domain.Resolution
	Tier       game.Tier
	Reason     string
	UpdatedAt  time.Time
}

// Sink receives state snapshots as transitions happen. It is called inline
// and must not block.
type Sink func(State)

// Coordinator runs the guess lifecycle as a linear state machine:
// Idle -> Submitting -> AwaitingConfirmation -> AwaitingResolution ->
// Resolved | TimedOut | Failed. One attempt at a time; a concurrent Run fails
// with domain.ErrLifecycleActive.
type Coordinator struct {
	gw     Gateway
	clock  Clock
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	active bool
	state  State
}

// NewCoordinator builds a Coordinator in the Idle state.
func NewCoordinator(gw Gateway, clock Clock, cfg Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		gw:     gw,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With("component", "lifecycle"),
		state:  State{Phase: domain.PhaseIdle},
	}
}

// Snapshot returns the current lifecycle state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset clears a terminal state back to Idle. Resetting while an attempt is
// running fails with domain.ErrLifecycleActive.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return domain.ErrLifecycleActive
	}
	c.state = State{Phase: domain.PhaseIdle, UpdatedAt: c.clock.Now()}
	return nil
}

// begin admits a new attempt unless one is already running.
func (c *Coordinator) begin(attemptID, crypto string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return false
	}
	c.active = true
	c.state = State{Phase: domain.PhaseIdle, AttemptID: attemptID, Crypto: crypto, UpdatedAt: c.clock.Now()}
	return true
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// transition mutates the tracked state, logs it, and feeds the sink.
func (c *Coordinator) transition(sink Sink, mutate func(*State)) State {
	c.mu.Lock()
	mutate(&c.state)
	c.state.UpdatedAt = c.clock.Now()
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("phase transition",
		"attempt_id", snap.AttemptID,
		"phase", string(snap.Phase),
		"tx_hash", snap.TxHash,
		"reason", snap.Reason)
	if sink != nil {
		sink(snap)
	}
	return snap
}

// Run submits a guess and follows it to a terminal phase, returning the
// terminal State. The returned error is nil only when the guess resolved.
// scaledPrice is the 1e8 fixed-point prediction; testPath selects the
// owner-only test submission that skips the cooldown.
func (c *Coordinator) Run(ctx context.Context, attemptID, crypto string, scaledPrice *big.Int, testPath bool, sink Sink) (State, error) {
	if !c.begin(attemptID, crypto) {
		return c.Snapshot(), domain.ErrLifecycleActive
	}
	defer c.finish()

	fail := func(err error) (State, error) {
		snap := c.transition(sink, func(s *State) {
			s.Phase = domain.PhaseFailed
			s.Reason = err.Error()
		})
		return snap, err
	}

	if err := c.checkPreconditions(ctx, crypto, scaledPrice, testPath); err != nil {
		return fail(err)
	}

	// Submitting
	c.transition(sink, func(s *State) { s.Phase = domain.PhaseSubmitting })
	fee, err := c.gw.TotalFee(ctx)
	if err != nil {
		return fail(err)
	}
	txHash, err := c.gw.SubmitGuess(ctx, crypto, scaledPrice, fee, testPath)
	if err != nil {
		return fail(err)
	}

	// AwaitingConfirmation
	c.transition(sink, func(s *State) {
		s.Phase = domain.PhaseAwaitingConfirmation
		s.TxHash = txHash.Hex()
	})
	receipt, err := c.gw.WaitMined(ctx, txHash)
	if err != nil {
		return fail(err)
	}

	requestID, ok := c.extractRequestID(receipt)
	if !ok {
		return fail(fmt.Errorf("lifecycle: tx %s: %w", txHash.Hex(), domain.ErrRequestIDNotFound))
	}

	// AwaitingResolution
	c.transition(sink, func(s *State) {
		s.Phase = domain.PhaseAwaitingResolution
		s.RequestID = requestID
	})
	return c.awaitResolution(ctx, requestID, receipt.BlockNumber.Uint64(), sink)
}

// checkPreconditions rejects a submission before any transaction is built.
// Each failure wraps domain.ErrPrecondition plus its specific sentinel.
func (c *Coordinator) checkPreconditions(ctx context.Context, crypto string, scaledPrice *big.Int, testPath bool) error {
	if c.gw.From() == (common.Address{}) {
		return fmt.Errorf("lifecycle: %w: %w", domain.ErrPrecondition, domain.ErrNoAccount)
	}
	if crypto == "" {
		return fmt.Errorf("lifecycle: %w: empty asset id", domain.ErrPrecondition)
	}
	if scaledPrice == nil || scaledPrice.Sign() <= 0 {
		return fmt.Errorf("lifecycle: %w: %w", domain.ErrPrecondition, domain.ErrEmptyPrice)
	}

	id, err := c.gw.ChainID(ctx)
	if err != nil {
		return err
	}
	if id.Int64() != c.cfg.ChainID {
		return fmt.Errorf("lifecycle: %w: %w: got %d, want %d",
			domain.ErrPrecondition, domain.ErrWrongNetwork, id.Int64(), c.cfg.ChainID)
	}

	// The test path bypasses the contract cooldown.
	if testPath {
		return nil
	}
	remaining, err := c.gw.CooldownRemaining(ctx, c.gw.From())
	if err != nil {
		return err
	}
	if remaining > 0 {
		return fmt.Errorf("lifecycle: %w: %w: %s remaining",
			domain.ErrPrecondition, domain.ErrCooldownActive, remaining)
	}
	return nil
}

// extractRequestID scans the receipt for this contract's GuessMade event and
// returns the requestId it carries.
func (c *Coordinator) extractRequestID(receipt *types.Receipt) (*big.Int, bool) {
	dec := c.gw.Decoder()
	for _, lg := range receipt.Logs {
		if ev, ok := dec.GuessMade(*lg); ok {
			return ev.RequestID, true
		}
	}
	return nil, false
}

// awaitResolution polls the pending-guess record until the resolving agent
// flips it, then fetches the resolution event. The event query runs exactly
// once, only after the record reports resolved.
func (c *Coordinator) awaitResolution(ctx context.Context, requestID *big.Int, fromBlock uint64, sink Sink) (State, error) {
	fail := func(phase domain.Phase, err error) (State, error) {
		snap := c.transition(sink, func(s *State) {
			s.Phase = phase
			s.Reason = err.Error()
		})
		return snap, err
	}

	deadline := c.clock.Now().Add(c.cfg.ResolveTimeout)
	for {
		pending, err := c.gw.PendingGuess(ctx, requestID)
		if err != nil {
			// Transient read failures do not abort the attempt; the deadline
			// bounds how long they can persist.
			c.logger.Warn("pending guess read failed", "request_id", requestID.String(), "error", err)
		} else if pending.Resolved {
			return c.fetchResolution(ctx, requestID, fromBlock, sink)
		}

		if c.clock.Now().Add(c.cfg.PollInterval).After(deadline) {
			return fail(domain.PhaseTimedOut,
				fmt.Errorf("lifecycle: request %s: %w after %s", requestID.String(), domain.ErrResolutionTimeout, c.cfg.ResolveTimeout))
		}
		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return fail(domain.PhaseFailed, fmt.Errorf("lifecycle: %w: %v", domain.ErrContextDone, err))
		}
	}
}

func (c *Coordinator) fetchResolution(ctx context.Context, requestID *big.Int, fromBlock uint64, sink Sink) (State, error) {
	fail := func(err error) (State, error) {
		snap := c.transition(sink, func(s *State) {
			s.Phase = domain.PhaseFailed
			s.Reason = err.Error()
		})
		return snap, err
	}

	events, err := c.gw.ResolutionEvents(ctx, requestID, fromBlock)
	if err != nil {
		return fail(err)
	}
	if len(events) == 0 {
		return fail(fmt.Errorf("lifecycle: request %s: %w", requestID.String(), domain.ErrResolutionEventMissing))
	}
	if len(events) > 1 {
		// Should be impossible for a well-behaved contract; keep the first.
		c.logger.Warn("multiple resolution events for one request",
			"request_id", requestID.String(), "count", len(events))
	}

	res := events[0]
	tier := game.Classify(res.AccuracyBps)
	snap := c.transition(sink, func(s *State) {
		s.Phase = domain.PhaseResolved
		s.Resolution = &res
		s.Tier = tier
		s.Reason = ""
	})
	return snap, nil
}
