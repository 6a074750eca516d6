package common

import (
	"bytes"
	"encoding/json"

	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/shopspring/decimal"
)

// Amount is a request amount given as a JSON number or string. It is kept
// raw so that NaN, Inf and unparsable input surface as invalid_amount
// rather than as a body decoding failure.
type Amount string

// UnmarshalJSON accepts 12.5 and "12.5" alike.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(b)
	return nil
}

// Decimal parses the amount.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return money.ParseAmount(string(a))
}
