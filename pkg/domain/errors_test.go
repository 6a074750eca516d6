package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := domain.Errorf(domain.KindUnsupportedCurrency, "currency %q is not supported", "XXX")

	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	assert.NotErrorIs(t, err, domain.ErrUnsupportedLocale)
	assert.Equal(t, `currency "XXX" is not supported`, err.Error())

	wrapped := fmt.Errorf("convert: %w", err)
	assert.ErrorIs(t, wrapped, domain.ErrUnsupportedCurrency)
	assert.Equal(t, domain.KindUnsupportedCurrency, domain.KindOf(wrapped))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := domain.Wrap(domain.KindRateUnavailable, cause, "no rate for %s", "USD:EUR")

	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no rate for USD:EUR: dial tcp: timeout", err.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, domain.Kind(""), domain.KindOf(errors.New("boom")))
	assert.Equal(t, "invalid_amount", (&domain.Error{Kind: domain.KindInvalidAmount}).Error())
}
