package game

import "fmt"

// Tier is a reward band derived from the accuracy of a resolved guess.
// Tier 0 means the guess missed every reward band.
type Tier struct {
	Number     int
	Multiplier int
	MaxBps     uint64
}

// tierTable is ordered by tightening accuracy. Band boundaries are inclusive
// upper bounds in basis points of deviation from the actual price.
var tierTable = []Tier{
	{Number: 1, Multiplier: 10, MaxBps: 10},
	{Number: 2, Multiplier: 5, MaxBps: 50},
	{Number: 3, Multiplier: 3, MaxBps: 100},
	{Number: 4, Multiplier: 2, MaxBps: 200},
	{Number: 5, Multiplier: 1, MaxBps: 500},
}

// Classify maps an accuracy in basis points to its reward tier. Anything
// beyond the loosest band returns the zero Tier (a loss).
func Classify(accuracyBps uint64) Tier {
	for _, t := range tierTable {
		if accuracyBps <= t.MaxBps {
			return t
		}
	}
	return Tier{}
}

// Win reports whether the tier pays out.
func (t Tier) Win() bool {
	return t.Number > 0
}

// Label renders the tier the way it is shown to players, e.g.
// "Tier 2 (<=0.5%) - 5x" or "No win (>5.0%)".
func (t Tier) Label() string {
	if !t.Win() {
		return "No win (>5.0%)"
	}
	return fmt.Sprintf("Tier %d (<=%.1f%%) - %dx", t.Number, float64(t.MaxBps)/100, t.Multiplier)
}
