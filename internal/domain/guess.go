// Package domain defines the core entities of the price-prediction game and
// the store/cache interfaces their infrastructure implements.
package domain

import (
	"math/big"
	"time"
)

// GuessRequest is the contract's pending-guess record for a requestId. It is
// created when a submission transaction is mined and mutated exactly once by
// the resolving agent (resolved: false -> true). This service only ever reads
// it.
type GuessRequest struct {
	RequestID    *big.Int
	Player       string
	Crypto       string
	GuessedPrice *big.Int // 1e8 fixed-point
	SubmittedAt  time.Time
	Resolved     bool
}

// Resolution is the payload of a GuessResolved event. At most one exists per
// requestId; it is immutable once emitted.
type Resolution struct {
	RequestID    *big.Int
	Player       string
	Crypto       string
	GuessedPrice *big.Int // 1e8 fixed-point
	ActualPrice  *big.Int // 1e8 fixed-point
	AccuracyBps  uint64
	Reward       *big.Int // wei, 18 decimals
	Won          bool
	TxHash       string
	BlockNumber  uint64
}

// PlayerStats is the contract's aggregate counters for a player. Fetched on
// demand and cached; never mutated locally.
type PlayerStats struct {
	TotalGuesses    uint64
	Wins            uint64
	TotalWinnings   *big.Int // wei
	BestAccuracyBps uint64
}

// GameInfo is a snapshot of the contract's public parameters.
type GameInfo struct {
	PrizePool        *big.Int // wei
	TotalFee         *big.Int // wei per guess
	SupportedCryptos []string
	Owner            string
	FetchedAt        time.Time
}

// GuessRecord is a persisted lifecycle attempt: one row per submission,
// updated in place when the attempt reaches a terminal state.
type GuessRecord struct {
	ID           string // uuid
	Player       string
	Crypto       string
	GuessedPrice *big.Int
	TxHash       string
	RequestID    *big.Int
	Phase        Phase
	Resolution   *Resolution
	Tier         int
	FailReason   string
	SubmittedAt  time.Time
	SettledAt    *time.Time
}
