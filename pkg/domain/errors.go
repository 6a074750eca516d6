package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a surfaced error.
type Kind string

// Error kinds surfaced by the engine.
const (
	KindUnsupportedCurrency Kind = "unsupported_currency"
	KindUnsupportedLocale   Kind = "unsupported_locale"
	KindUnsupportedRegion   Kind = "unsupported_region"
	KindInvalidAmount       Kind = "invalid_amount"
	KindTaxRuleNotFound     Kind = "tax_rule_not_found"
	KindRateUnavailable     Kind = "rate_unavailable"
	KindInvalidConfig       Kind = "invalid_config"
)

// Error carries a Kind, a human-readable message and an optional cause.
// Two errors match under errors.Is when their kinds are equal, so callers
// can test against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedCurrency = &Error{Kind: KindUnsupportedCurrency, Message: "unsupported currency"}
	ErrUnsupportedLocale   = &Error{Kind: KindUnsupportedLocale, Message: "unsupported locale"}
	ErrUnsupportedRegion   = &Error{Kind: KindUnsupportedRegion, Message: "unsupported region"}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrTaxRuleNotFound     = &Error{Kind: KindTaxRuleNotFound, Message: "tax rule not found"}
	ErrRateUnavailable     = &Error{Kind: KindRateUnavailable, Message: "exchange rate unavailable"}
	ErrInvalidConfig       = &Error{Kind: KindInvalidConfig, Message: "invalid configuration"}
)

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
