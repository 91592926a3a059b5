package game

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPlayer   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func makeGuessMadeLog(t *testing.T, reqID *big.Int, crypto string, price *big.Int) types.Log {
	t.Helper()
	data, err := gameABI.Events["GuessMade"].Inputs.NonIndexed().Pack(crypto, price)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{gameABI.Events["GuessMade"].ID, common.BigToHash(reqID), addressTopic(testPlayer)},
		Data:        data,
		TxHash:      common.HexToHash("0xabc1"),
		BlockNumber: 42,
	}
}

func makeGuessResolvedLog(t *testing.T, reqID *big.Int, accuracyBps uint64, won bool) types.Log {
	t.Helper()
	data, err := gameABI.Events["GuessResolved"].Inputs.NonIndexed().Pack(
		"BTC",
		big.NewInt(6_500_000_000_000),
		big.NewInt(6_500_130_000_000),
		new(big.Int).SetUint64(accuracyBps),
		big.NewInt(1e18),
		won,
	)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{gameABI.Events["GuessResolved"].ID, common.BigToHash(reqID), addressTopic(testPlayer)},
		Data:        data,
		TxHash:      common.HexToHash("0xabc2"),
		BlockNumber: 43,
	}
}

func TestDecodeGuessMade(t *testing.T) {
	dec := NewDecoder(testContract)
	reqID := big.NewInt(7)

	ev, ok := dec.GuessMade(makeGuessMadeLog(t, reqID, "ETH", big.NewInt(250_000_000_000)))
	require.True(t, ok)
	assert.Zero(t, reqID.Cmp(ev.RequestID))
	assert.Equal(t, testPlayer, ev.Player)
	assert.Equal(t, "ETH", ev.Crypto)
	assert.Equal(t, "250000000000", ev.GuessedPrice.String())
	assert.Equal(t, uint64(42), ev.BlockNumber)
}

func TestDecodeGuessResolved(t *testing.T) {
	dec := NewDecoder(testContract)
	reqID := big.NewInt(9)

	res, ok := dec.GuessResolved(makeGuessResolvedLog(t, reqID, 20, true))
	require.True(t, ok)
	assert.Zero(t, reqID.Cmp(res.RequestID))
	assert.Equal(t, testPlayer.Hex(), res.Player)
	assert.Equal(t, "BTC", res.Crypto)
	assert.Equal(t, uint64(20), res.AccuracyBps)
	assert.True(t, res.Won)
	assert.Equal(t, "1000000000000000000", res.Reward.String())
}

func TestDecoderRejectsForeignLogs(t *testing.T) {
	dec := NewDecoder(testContract)

	// Wrong contract address.
	lg := makeGuessMadeLog(t, big.NewInt(1), "BTC", big.NewInt(1))
	lg.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, ok := dec.GuessMade(lg)
	assert.False(t, ok)

	// Wrong event signature.
	lg = makeGuessMadeLog(t, big.NewInt(1), "BTC", big.NewInt(1))
	lg.Topics[0] = common.HexToHash("0xdead")
	_, ok = dec.GuessMade(lg)
	assert.False(t, ok)

	// A GuessResolved log fed to the GuessMade decoder.
	_, ok = dec.GuessMade(makeGuessResolvedLog(t, big.NewInt(1), 10, true))
	assert.False(t, ok)
}

func TestDecoderToleratesMalformedLogs(t *testing.T) {
	dec := NewDecoder(testContract)

	// Missing indexed topics.
	_, ok := dec.GuessMade(types.Log{
		Address: testContract,
		Topics:  []common.Hash{gameABI.Events["GuessMade"].ID},
	})
	assert.False(t, ok)

	// Truncated data payload must not panic.
	lg := makeGuessMadeLog(t, big.NewInt(1), "BTC", big.NewInt(1))
	lg.Data = lg.Data[:8]
	_, ok = dec.GuessMade(lg)
	assert.False(t, ok)

	lg2 := makeGuessResolvedLog(t, big.NewInt(1), 10, true)
	lg2.Data = nil
	_, ok2 := dec.GuessResolved(lg2)
	assert.False(t, ok2)
}

func TestDecoderTopics(t *testing.T) {
	dec := NewDecoder(testContract)
	assert.Equal(t, gameABI.Events["GuessMade"].ID, dec.GuessMadeTopic())
	assert.Equal(t, gameABI.Events["GuessResolved"].ID, dec.GuessResolvedTopic())
	assert.NotEqual(t, dec.GuessMadeTopic(), dec.GuessResolvedTopic())
}
