package money

import "errors"

// Common money package errors
var (
	// ErrInvalidAmount is returned when an amount cannot be parsed or is not finite.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCurrency is returned when a currency code or precision is malformed.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrMismatchedCurrencies is returned when performing operations on money with
	// different currencies
	ErrMismatchedCurrencies = errors.New("mismatched currencies")

	// ErrUnknownRoundingMode is returned when a rounding policy name is not recognised.
	ErrUnknownRoundingMode = errors.New("unknown rounding mode")
)
