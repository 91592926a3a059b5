package game

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

// GuessMadeEvent is the decoded confirmation event carrying the requestId a
// submission was assigned.
type GuessMadeEvent struct {
	RequestID    *big.Int
	Player       common.Address
	Crypto       string
	GuessedPrice *big.Int
	TxHash       common.Hash
	BlockNumber  uint64
}

// Decoder decodes game contract logs. Every method is total: logs that do not
// match the expected contract, event signature, or payload shape yield
// (zero, false) and never an error or panic, so callers can feed it arbitrary
// receipt logs.
type Decoder struct {
	contract common.Address

	guessMadeID     common.Hash
	guessResolvedID common.Hash
}

// NewDecoder returns a Decoder bound to one contract address.
func NewDecoder(contract common.Address) *Decoder {
	return &Decoder{
		contract:        contract,
		guessMadeID:     gameABI.Events["GuessMade"].ID,
		guessResolvedID: gameABI.Events["GuessResolved"].ID,
	}
}

// GuessMade decodes a GuessMade log. The two indexed topics carry requestId
// and player; crypto and guessedPrice are ABI-packed in the data payload.
func (d *Decoder) GuessMade(lg types.Log) (GuessMadeEvent, bool) {
	if lg.Address != d.contract || len(lg.Topics) != 3 || lg.Topics[0] != d.guessMadeID {
		return GuessMadeEvent{}, false
	}

	vals, err := gameABI.Events["GuessMade"].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(vals) != 2 {
		return GuessMadeEvent{}, false
	}
	crypto, ok1 := vals[0].(string)
	price, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return GuessMadeEvent{}, false
	}

	return GuessMadeEvent{
		RequestID:    new(big.Int).SetBytes(lg.Topics[1].Bytes()),
		Player:       common.BytesToAddress(lg.Topics[2].Bytes()),
		Crypto:       crypto,
		GuessedPrice: price,
		TxHash:       lg.TxHash,
		BlockNumber:  lg.BlockNumber,
	}, true
}

// GuessResolved decodes a GuessResolved log into a domain.Resolution.
func (d *Decoder) GuessResolved(lg types.Log) (domain.Resolution, bool) {
	if lg.Address != d.contract || len(lg.Topics) != 3 || lg.Topics[0] != d.guessResolvedID {
		return domain.Resolution{}, false
	}

	vals, err := gameABI.Events["GuessResolved"].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(vals) != 6 {
		return domain.Resolution{}, false
	}
	crypto, ok1 := vals[0].(string)
	guessed, ok2 := vals[1].(*big.Int)
	actual, ok3 := vals[2].(*big.Int)
	accuracy, ok4 := vals[3].(*big.Int)
	reward, ok5 := vals[4].(*big.Int)
	won, ok6 := vals[5].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !accuracy.IsUint64() {
		return domain.Resolution{}, false
	}

	return domain.Resolution{
		RequestID:    new(big.Int).SetBytes(lg.Topics[1].Bytes()),
		Player:       common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
		Crypto:       crypto,
		GuessedPrice: guessed,
		ActualPrice:  actual,
		AccuracyBps:  accuracy.Uint64(),
		Reward:       reward,
		Won:          won,
		TxHash:       lg.TxHash.Hex(),
		BlockNumber:  lg.BlockNumber,
	}, true
}

// GuessMadeTopic returns the GuessMade event signature hash.
func (d *Decoder) GuessMadeTopic() common.Hash { return d.guessMadeID }

// GuessResolvedTopic returns the GuessResolved event signature hash.
func (d *Decoder) GuessResolvedTopic() common.Hash { return d.guessResolvedID }
