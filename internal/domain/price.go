package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// PriceDecimals is the fixed-point scale for on-chain prices.
const PriceDecimals = 8

// NativeDecimals is the native currency's decimal count (wei-style).
const NativeDecimals = 18

// ParsePrice converts a user-entered decimal price string into the 1e8
// fixed-point integer domain the contract uses. Extra fractional digits are
// truncated (round toward zero). Negative, empty, or malformed input fails
// with ErrInvalidAmount.
func ParsePrice(s string) (*big.Int, error) {
	return ParseUnits(s, PriceDecimals)
}

// ParseUnits converts a non-negative decimal string into an integer scaled by
// 10^decimals, truncating excess fractional digits.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: %q must be an unsigned decimal", ErrInvalidAmount, s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		frac = frac[:decimals] // truncate toward zero
	}
	frac += strings.Repeat("0", decimals-len(frac))

	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
		}
	}

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatPrice renders a 1e8 fixed-point integer as a decimal string with
// trailing zeros trimmed, the inverse of ParsePrice for representable inputs.
func FormatPrice(v *big.Int) string {
	return FormatUnits(v, PriceDecimals)
}

// FormatWei renders a wei amount (18 decimals) as a decimal string.
func FormatWei(v *big.Int) string {
	return FormatUnits(v, NativeDecimals)
}

// FormatUnits renders an integer scaled by 10^decimals as a decimal string.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole := s[:len(s)-decimals]
	frac := strings.TrimRight(s[len(s)-decimals:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
