// Package game is the typed façade over the price-prediction contract: ABI
// encoding/decoding, transaction submission, state reads, event decoding, and
// reward tier classification.
package game

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// gameABIJSON is the fixed external ABI surface of the prediction game
// contract. The service treats the contract as a black box behind this
// interface; its internal logic is out of scope.
const gameABIJSON = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]},
  {"type":"function","name":"TOTAL_FEE","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"getPrizePool","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"getSupportedCryptos","stateMutability":"view","inputs":[],"outputs":[{"type":"string[]"}]},
  {"type":"function","name":"getPlayerStats","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"type":"tuple","components":[
     {"name":"totalGuesses","type":"uint256"},
     {"name":"wins","type":"uint256"},
     {"name":"totalWinnings","type":"uint256"},
     {"name":"bestAccuracyBps","type":"uint256"}]}]},
  {"type":"function","name":"getCooldownRemaining","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"getPendingGuess","stateMutability":"view",
   "inputs":[{"name":"requestId","type":"uint256"}],
   "outputs":[{"type":"tuple","components":[
     {"name":"player","type":"address"},
     {"name":"crypto","type":"string"},
     {"name":"guessedPrice","type":"uint256"},
     {"name":"timestamp","type":"uint256"},
     {"name":"resolved","type":"bool"}]}]},
  {"type":"function","name":"fundPool","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"guess","stateMutability":"payable",
   "inputs":[{"name":"crypto","type":"string"},{"name":"predictedPrice","type":"uint256"}],
   "outputs":[{"name":"requestId","type":"uint256"}]},
  {"type":"function","name":"testGuess","stateMutability":"payable",
   "inputs":[{"name":"crypto","type":"string"},{"name":"predictedPrice","type":"uint256"}],
   "outputs":[{"name":"requestId","type":"uint256"}]},
  {"type":"event","name":"GuessMade","inputs":[
    {"name":"requestId","type":"uint256","indexed":true},
    {"name":"player","type":"address","indexed":true},
    {"name":"crypto","type":"string","indexed":false},
    {"name":"guessedPrice","type":"uint256","indexed":false}]},
  {"type":"event","name":"GuessResolved","inputs":[
    {"name":"requestId","type":"uint256","indexed":true},
    {"name":"player","type":"address","indexed":true},
    {"name":"crypto","type":"string","indexed":false},
    {"name":"guessedPrice","type":"uint256","indexed":false},
    {"name":"actualPrice","type":"uint256","indexed":false},
    {"name":"accuracyBps","type":"uint256","indexed":false},
    {"name":"reward","type":"uint256","indexed":false},
    {"name":"won","type":"bool","indexed":false}]}
]`

var gameABI = mustParseABI(gameABIJSON)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic("game: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
