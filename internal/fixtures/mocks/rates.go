// Package mocks holds testify mocks for the rate interfaces.
package mocks

import (
	"context"

	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/provider"
	"github.com/stretchr/testify/mock"
)

// RateSource is a mock provider.RateSource.
type RateSource struct {
	mock.Mock
}

// NewRateSource creates a RateSource mock named name whose expectations are
// asserted at test cleanup.
func NewRateSource(t interface {
	mock.TestingT
	Cleanup(func())
}, name string) *RateSource {
	m := &RateSource{}
	m.Mock.Test(t)
	m.On("Name").Return(name).Maybe()
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *RateSource) Name() string {
	return m.Called().String(0)
}

func (m *RateSource) Fetch(ctx context.Context, p provider.Pair) (*provider.RateQuote, error) {
	ret := m.Called(ctx, p)
	var q *provider.RateQuote
	if fn, ok := ret.Get(0).(func(context.Context, provider.Pair) *provider.RateQuote); ok {
		q = fn(ctx, p)
	} else if ret.Get(0) != nil {
		q = ret.Get(0).(*provider.RateQuote)
	}
	return q, ret.Error(1)
}

var _ provider.RateSource = (*RateSource)(nil)

// RateGetter mocks the GetRate/GetObservedRate methods of the exchange
// provider.
type RateGetter struct {
	mock.Mock
}

// NewRateGetter creates a RateGetter mock whose expectations are asserted at
// test cleanup.
func NewRateGetter(t interface {
	mock.TestingT
	Cleanup(func())
}) *RateGetter {
	m := &RateGetter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *RateGetter) GetRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error) {
	return quoteResult(m.Called(ctx, from, to))
}

func (m *RateGetter) GetObservedRate(ctx context.Context, from, to money.Code) (*provider.RateQuote, error) {
	return quoteResult(m.Called(ctx, from, to))
}

func quoteResult(ret mock.Arguments) (*provider.RateQuote, error) {
	var q *provider.RateQuote
	if ret.Get(0) != nil {
		q = ret.Get(0).(*provider.RateQuote)
	}
	return q, ret.Error(1)
}
