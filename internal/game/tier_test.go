package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBandEdges(t *testing.T) {
	tests := []struct {
		name       string
		bps        uint64
		number     int
		multiplier int
	}{
		{"exact match", 0, 1, 10},
		{"tier1 upper bound", 10, 1, 10},
		{"just past tier1", 11, 2, 5},
		{"tier2 upper bound", 50, 2, 5},
		{"just past tier2", 51, 3, 3},
		{"tier3 upper bound", 100, 3, 3},
		{"just past tier3", 101, 4, 2},
		{"tier4 upper bound", 200, 4, 2},
		{"just past tier4", 201, 5, 1},
		{"tier5 upper bound", 500, 5, 1},
		{"just past tier5", 501, 0, 0},
		{"way off", 10_000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := Classify(tt.bps)
			assert.Equal(t, tt.number, tier.Number)
			assert.Equal(t, tt.multiplier, tier.Multiplier)
			assert.Equal(t, tt.number > 0, tier.Win())
		})
	}
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "Tier 1 (<=0.1%) - 10x", Classify(10).Label())
	assert.Equal(t, "Tier 2 (<=0.5%) - 5x", Classify(50).Label())
	assert.Equal(t, "Tier 3 (<=1.0%) - 3x", Classify(100).Label())
	assert.Equal(t, "Tier 4 (<=2.0%) - 2x", Classify(200).Label())
	assert.Equal(t, "Tier 5 (<=5.0%) - 1x", Classify(500).Label())
	assert.Equal(t, "No win (>5.0%)", Classify(501).Label())
	assert.Equal(t, "No win (>5.0%)", Tier{}.Label())
}
