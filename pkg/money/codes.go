package money

import "strings"

// Code represents a currency code (e.g., "USD", "EUR", "BTC", "USDT").
type Code string

// Common currency codes
const (
	USD Code = "USD" // US Dollar
	EUR Code = "EUR" // Euro
	JPY Code = "JPY" // Japanese Yen
	KWD Code = "KWD" // Kuwaiti Dinar
	GBP Code = "GBP" // British Pound
	BTC Code = "BTC" // Bitcoin
)

// ParseCode normalizes a raw code (trims spaces, upper-cases it).
func ParseCode(raw string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValid reports whether the code has the shape of a currency code:
// 3 to 5 upper-case letters or digits, starting with a letter. Fiat codes are
// ISO 4217 (3 letters); crypto tickers such as USDT or DOGE are longer.
func (c Code) IsValid() bool {
	if len(c) < 3 || len(c) > 5 {
		return false
	}
	if c[0] < 'A' || c[0] > 'Z' {
		return false
	}
	for i := 1; i < len(c); i++ {
		ch := c[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}

// String returns the string representation of the currency code.
func (c Code) String() string {
	return string(c)
}
