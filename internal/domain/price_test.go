package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "65000", "6500000000000"},
		{"full precision", "65000.12345678", "6500012345678"},
		{"truncates extra digits", "0.123456789", "12345678"},
		{"short fraction padded", "1.5", "150000000"},
		{"leading dot", ".25", "25000000"},
		{"trailing dot", "42.", "4200000000"},
		{"zero", "0", "0"},
		{"whitespace trimmed", "  100  ", "10000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParsePriceRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "-1", "+1", "abc", "1.2.3", "1e8", "12,000"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePrice(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestParseUnitsWei(t *testing.T) {
	got, err := ParseUnits("1.5", NativeDecimals)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", got.String())
}

func TestFormatUnits(t *testing.T) {
	price := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		require.True(t, ok)
		return v
	}

	assert.Equal(t, "65000.12345678", FormatPrice(price("6500012345678")))
	assert.Equal(t, "65000", FormatPrice(price("6500000000000")))
	assert.Equal(t, "0.00000001", FormatPrice(price("1")))
	assert.Equal(t, "0", FormatPrice(big.NewInt(0)))
	assert.Equal(t, "0", FormatPrice(nil))
	assert.Equal(t, "1.5", FormatWei(price("1500000000000000000")))
	assert.Equal(t, "-0.5", FormatUnits(price("-50000000"), PriceDecimals))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"65000.12345678", "0.00000001", "1", "123456.789"} {
		v, err := ParsePrice(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatPrice(v))
	}
}
