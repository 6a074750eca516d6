package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode names the policy used to bring an amount to a currency's
// minor-unit precision. Results always carry the mode that was applied.
type RoundingMode string

const (
	// RoundHalfUp rounds ties away from zero (0.125 -> 0.13). Default policy.
	RoundHalfUp RoundingMode = "half_up"
	// RoundHalfEven rounds ties to the nearest even digit (banker's rounding).
	RoundHalfEven RoundingMode = "half_even"
	// RoundDown truncates toward zero.
	RoundDown RoundingMode = "down"
	// RoundUp rounds away from zero whenever a remainder exists.
	RoundUp RoundingMode = "up"
)

// DefaultRoundingMode is applied when no policy is configured.
const DefaultRoundingMode = RoundHalfUp

// ParseRoundingMode resolves a configured policy name. An empty string yields
// the default policy.
func ParseRoundingMode(raw string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return DefaultRoundingMode, nil
	case RoundHalfUp:
		return RoundHalfUp, nil
	case RoundHalfEven:
		return RoundHalfEven, nil
	case RoundDown:
		return RoundDown, nil
	case RoundUp:
		return RoundUp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRoundingMode, raw)
	}
}

// IsValid reports whether the mode is one of the named policies.
func (m RoundingMode) IsValid() bool {
	_, err := ParseRoundingMode(string(m))
	return err == nil && m != ""
}

// String returns the policy name.
func (m RoundingMode) String() string { return string(m) }

// Round brings amount to the given number of fraction digits using mode.
// Unknown modes fall back to RoundHalfUp so that no caller ever gets an
// unrounded value.
func Round(amount decimal.Decimal, digits int, mode RoundingMode) decimal.Decimal {
	places := int32(digits)
	switch mode {
	case RoundHalfEven:
		return amount.RoundBank(places)
	case RoundDown:
		return amount.RoundDown(places)
	case RoundUp:
		return amount.RoundUp(places)
	default:
		return amount.Round(places)
	}
}
