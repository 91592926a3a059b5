package lifecycle

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictbot/internal/domain"
	"github.com/alanyoungcy/predictbot/internal/game"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPlayer   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeClock advances virtual time on Sleep so timeout paths run instantly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

type fakeGateway struct {
	from    common.Address
	decoder *game.Decoder
	chainID int64

	cooldown    time.Duration
	fee         *big.Int
	txHash      common.Hash
	receipt     *types.Receipt
	submitErr   error
	minedErr    error
	pendingErr  error
	eventsErr   error
	neverSettle bool

	// resolveAfter is how many PendingGuess reads report unresolved before
	// the record flips.
	resolveAfter int
	events       []domain.Resolution

	mu           sync.Mutex
	pendingCalls int
	filterCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		from:    testPlayer,
		decoder: game.NewDecoder(testContract),
		chainID: 50312,
		fee:     big.NewInt(1e16),
		txHash:  common.HexToHash("0xfeed"),
	}
}

func (f *fakeGateway) From() common.Address   { return f.from }
func (f *fakeGateway) Decoder() *game.Decoder { return f.decoder }

func (f *fakeGateway) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeGateway) CooldownRemaining(context.Context, common.Address) (time.Duration, error) {
	return f.cooldown, nil
}

func (f *fakeGateway) TotalFee(context.Context) (*big.Int, error) {
	return f.fee, nil
}

func (f *fakeGateway) SubmitGuess(context.Context, string, *big.Int, *big.Int, bool) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeGateway) WaitMined(context.Context, common.Hash) (*types.Receipt, error) {
	if f.minedErr != nil {
		return nil, f.minedErr
	}
	return f.receipt, nil
}

func (f *fakeGateway) PendingGuess(_ context.Context, requestID *big.Int) (domain.GuessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingCalls++
	if f.pendingErr != nil {
		return domain.GuessRequest{}, f.pendingErr
	}
	resolved := !f.neverSettle && f.pendingCalls > f.resolveAfter
	return domain.GuessRequest{
		RequestID: requestID,
		Player:    testPlayer.Hex(),
		Crypto:    "BTC",
		Resolved:  resolved,
	}, nil
}

func (f *fakeGateway) ResolutionEvents(context.Context, *big.Int, uint64) ([]domain.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls++
	return f.events, f.eventsErr
}

func (f *fakeGateway) calls() (pending, filter int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingCalls, f.filterCalls
}

// guessMadeReceipt builds a mined receipt carrying a decodable GuessMade log
// for the given requestId.
func guessMadeReceipt(t *testing.T, reqID *big.Int) *types.Receipt {
	t.Helper()
	strTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	uintTy, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	data, err := abi.Arguments{{Type: strTy}, {Type: uintTy}}.Pack("BTC", big.NewInt(6_500_000_000_000))
	require.NoError(t, err)

	dec := game.NewDecoder(testContract)
	lg := &types.Log{
		Address: testContract,
		Topics: []common.Hash{
			dec.GuessMadeTopic(),
			common.BigToHash(reqID),
			common.BytesToHash(testPlayer.Bytes()),
		},
		Data:        data,
		BlockNumber: 100,
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs:        []*types.Log{lg},
	}
}

func resolution(reqID *big.Int, accuracyBps uint64) domain.Resolution {
	return domain.Resolution{
		RequestID:    reqID,
		Player:       testPlayer.Hex(),
		Crypto:       "BTC",
		GuessedPrice: big.NewInt(6_500_000_000_000),
		ActualPrice:  big.NewInt(6_500_130_000_000),
		AccuracyBps:  accuracyBps,
		Reward:       big.NewInt(1e17),
		Won:          accuracyBps <= 500,
		TxHash:       "0xresolve",
		BlockNumber:  105,
	}
}

func newTestCoordinator(gw *fakeGateway) (*Coordinator, *fakeClock) {
	clock := newFakeClock()
	c := NewCoordinator(gw, clock, Config{
		ChainID:        50312,
		PollInterval:   3 * time.Second,
		ResolveTimeout: 120 * time.Second,
	}, slog.Default())
	return c, clock
}

func TestRunResolvesGuess(t *testing.T) {
	reqID := big.NewInt(7)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	gw.resolveAfter = 1
	gw.events = []domain.Resolution{resolution(reqID, 2)}
	c, _ := newTestCoordinator(gw)

	var phases []domain.Phase
	state, err := c.Run(context.Background(), "attempt-1", "BTC", big.NewInt(6_500_000_000_000), false,
		func(s State) { phases = append(phases, s.Phase) })

	require.NoError(t, err)
	assert.Equal(t, domain.PhaseResolved, state.Phase)
	require.NotNil(t, state.Resolution)
	assert.Equal(t, uint64(2), state.Resolution.AccuracyBps)
	assert.Equal(t, 1, state.Tier.Number)
	assert.Zero(t, reqID.Cmp(state.RequestID))
	assert.Equal(t, gw.txHash.Hex(), state.TxHash)

	assert.Equal(t, []domain.Phase{
		domain.PhaseSubmitting,
		domain.PhaseAwaitingConfirmation,
		domain.PhaseAwaitingResolution,
		domain.PhaseResolved,
	}, phases)

	pending, filter := gw.calls()
	assert.Equal(t, 2, pending)
	assert.Equal(t, 1, filter, "resolution events must be queried exactly once")

	// Terminal state sticks until Reset.
	assert.Equal(t, domain.PhaseResolved, c.Snapshot().Phase)
	require.NoError(t, c.Reset())
	assert.Equal(t, domain.PhaseIdle, c.Snapshot().Phase)
	assert.Nil(t, c.Snapshot().Resolution)
}

func TestRunTimesOut(t *testing.T) {
	reqID := big.NewInt(8)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	gw.neverSettle = true
	c, clock := newTestCoordinator(gw)

	start := clock.Now()
	state, err := c.Run(context.Background(), "attempt-2", "BTC", big.NewInt(1), false, nil)

	require.ErrorIs(t, err, domain.ErrResolutionTimeout)
	assert.Equal(t, domain.PhaseTimedOut, state.Phase)
	assert.NotEmpty(t, state.Reason)

	// Polls land on t=0,3,...,120: 41 reads, no single event query.
	pending, filter := gw.calls()
	assert.Equal(t, 41, pending)
	assert.Zero(t, filter)
	assert.Equal(t, 120*time.Second, clock.Now().Sub(start))
}

func TestRunToleratesTransientPollErrors(t *testing.T) {
	reqID := big.NewInt(9)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	gw.pendingErr = assert.AnError
	c, _ := newTestCoordinator(gw)

	state, err := c.Run(context.Background(), "attempt-3", "BTC", big.NewInt(1), false, nil)

	// Read failures never abort the attempt; the deadline decides.
	require.ErrorIs(t, err, domain.ErrResolutionTimeout)
	assert.Equal(t, domain.PhaseTimedOut, state.Phase)
}

func TestRunFailsWithoutGuessMadeEvent(t *testing.T) {
	gw := newFakeGateway()
	gw.receipt = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
	}
	c, _ := newTestCoordinator(gw)

	state, err := c.Run(context.Background(), "attempt-4", "BTC", big.NewInt(1), false, nil)

	require.ErrorIs(t, err, domain.ErrRequestIDNotFound)
	assert.Equal(t, domain.PhaseFailed, state.Phase)
}

func TestRunFailsWhenResolutionEventMissing(t *testing.T) {
	reqID := big.NewInt(10)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	c, _ := newTestCoordinator(gw)

	state, err := c.Run(context.Background(), "attempt-5", "BTC", big.NewInt(1), false, nil)

	require.ErrorIs(t, err, domain.ErrResolutionEventMissing)
	assert.Equal(t, domain.PhaseFailed, state.Phase)
}

func TestRunKeepsFirstOfMultipleResolutions(t *testing.T) {
	reqID := big.NewInt(11)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	gw.events = []domain.Resolution{resolution(reqID, 5), resolution(reqID, 400)}
	c, _ := newTestCoordinator(gw)

	state, err := c.Run(context.Background(), "attempt-6", "BTC", big.NewInt(1), false, nil)

	require.NoError(t, err)
	assert.Equal(t, uint64(5), state.Resolution.AccuracyBps)
	assert.Equal(t, 1, state.Tier.Number)
}

func TestRunPreconditions(t *testing.T) {
	t.Run("no account", func(t *testing.T) {
		gw := newFakeGateway()
		gw.from = common.Address{}
		c, _ := newTestCoordinator(gw)
		state, err := c.Run(context.Background(), "a", "BTC", big.NewInt(1), false, nil)
		require.ErrorIs(t, err, domain.ErrPrecondition)
		require.ErrorIs(t, err, domain.ErrNoAccount)
		assert.Equal(t, domain.PhaseFailed, state.Phase)
	})

	t.Run("empty asset", func(t *testing.T) {
		gw := newFakeGateway()
		c, _ := newTestCoordinator(gw)
		_, err := c.Run(context.Background(), "a", "", big.NewInt(1), false, nil)
		require.ErrorIs(t, err, domain.ErrPrecondition)
	})

	t.Run("missing price", func(t *testing.T) {
		gw := newFakeGateway()
		c, _ := newTestCoordinator(gw)
		_, err := c.Run(context.Background(), "a", "BTC", nil, false, nil)
		require.ErrorIs(t, err, domain.ErrEmptyPrice)

		_, err = c.Run(context.Background(), "a", "BTC", big.NewInt(0), false, nil)
		require.ErrorIs(t, err, domain.ErrEmptyPrice)
	})

	t.Run("wrong network", func(t *testing.T) {
		gw := newFakeGateway()
		gw.chainID = 1
		c, _ := newTestCoordinator(gw)
		_, err := c.Run(context.Background(), "a", "BTC", big.NewInt(1), false, nil)
		require.ErrorIs(t, err, domain.ErrWrongNetwork)
	})

	t.Run("cooldown active", func(t *testing.T) {
		gw := newFakeGateway()
		gw.cooldown = 45 * time.Second
		c, _ := newTestCoordinator(gw)
		_, err := c.Run(context.Background(), "a", "BTC", big.NewInt(1), false, nil)
		require.ErrorIs(t, err, domain.ErrCooldownActive)
	})

	t.Run("test path skips cooldown", func(t *testing.T) {
		reqID := big.NewInt(12)
		gw := newFakeGateway()
		gw.cooldown = 45 * time.Second
		gw.receipt = guessMadeReceipt(t, reqID)
		gw.events = []domain.Resolution{resolution(reqID, 100)}
		c, _ := newTestCoordinator(gw)
		state, err := c.Run(context.Background(), "a", "BTC", big.NewInt(1), true, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseResolved, state.Phase)
	})
}

func TestRunRejectsConcurrentAttempt(t *testing.T) {
	gw := newFakeGateway()
	c, _ := newTestCoordinator(gw)

	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	_, err := c.Run(context.Background(), "b", "BTC", big.NewInt(1), false, nil)
	require.ErrorIs(t, err, domain.ErrLifecycleActive)

	require.ErrorIs(t, c.Reset(), domain.ErrLifecycleActive)

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	require.NoError(t, c.Reset())
}

func TestRunFailsOnContextCancel(t *testing.T) {
	reqID := big.NewInt(13)
	gw := newFakeGateway()
	gw.receipt = guessMadeReceipt(t, reqID)
	gw.neverSettle = true
	c, _ := newTestCoordinator(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := c.Run(ctx, "attempt-7", "BTC", big.NewInt(1), false, nil)

	require.ErrorIs(t, err, domain.ErrContextDone)
	assert.Equal(t, domain.PhaseFailed, state.Phase)
}
