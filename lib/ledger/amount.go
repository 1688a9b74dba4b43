// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrMalformedAmount is wrapped by ToSubunits errors.
var ErrMalformedAmount = errors.New("malformed amount")

// ToSubunits converts a decimal token amount such as "12.5" into
// ledger subunits for a token with the given decimals. The amount
// must be non-negative and carry at most decimals fractional digits.
func ToSubunits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: unsupported decimals %d", ErrMalformedAmount, decimals)
	}
	text := strings.TrimSpace(amount)
	whole, fraction, hasPoint := strings.Cut(text, ".")
	if whole == "" && (!hasPoint || fraction == "") {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}
	if !digits(whole) || !digits(fraction) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}
	if len(fraction) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrMalformedAmount, amount, decimals)
	}

	subunits, ok := new(big.Int).SetString(whole+fraction+strings.Repeat("0", decimals-len(fraction)), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, amount)
	}
	return subunits, nil
}

// digits reports whether text is empty or all ASCII digits.
func digits(text string) bool {
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatAmount renders subunits as a decimal token amount, dropping
// trailing fractional zeros: 150000000 with 8 decimals is "1.5".
func FormatAmount(subunits *big.Int, decimals int) string {
	if subunits == nil {
		subunits = new(big.Int)
	}
	sign := ""
	text := subunits.String()
	if subunits.Sign() < 0 {
		sign = "-"
		text = text[1:]
	}
	if decimals <= 0 {
		return sign + text
	}
	if len(text) <= decimals {
		text = strings.Repeat("0", decimals-len(text)+1) + text
	}
	split := len(text) - decimals
	whole, fraction := text[:split], strings.TrimRight(text[split:], "0")
	if fraction == "" {
		return sign + whole
	}
	return sign + whole + "." + fraction
}
