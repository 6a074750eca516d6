package conversion

import "github.com/amirasaad/fxengine/webapi/common"

// ConvertRequest is the body of POST /api/convert. Amounts and fee rates are
// accepted as JSON numbers or strings.
type ConvertRequest struct {
	Amount   *common.Amount `json:"amount" validate:"required"`
	From     string         `json:"from" validate:"required,alphanum,min=2,max=10"`
	To       string         `json:"to" validate:"required,alphanum,min=2,max=10"`
	FeeRate  *common.Amount `json:"fee_rate,omitempty"`
	FeeMode  string         `json:"fee_mode,omitempty" validate:"omitempty,oneof=deduct add"`
	Rounding string         `json:"rounding,omitempty" validate:"omitempty,oneof=half_up half_even down up"`
}

// FormatRequest is the body of POST /api/format.
type FormatRequest struct {
	Amount   *common.Amount `json:"amount" validate:"required"`
	Currency string         `json:"currency" validate:"required,alphanum,min=2,max=10"`
	Locale   string         `json:"locale,omitempty"`
}
