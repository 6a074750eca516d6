package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Chdir(t.TempDir())
	t.Setenv("FXENGINE_ENV_FILE", "missing.env")
	t.Setenv("LOG_LEVEL", "8")
	t.Setenv("EVENT_BUS_DRIVER", "memory")
	t.Setenv("EXCHANGE_CACHE_DRIVER", "lru")
	t.Setenv("SOURCES_STATIC_ENABLED", "true")
	t.Setenv("AUTH_JWT_SECRET", "cli-secret")
}

func TestRun(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"convert", []string{"convert", "100", "USD", "EUR"}, " EUR (rate 0.85 via static"},
		{"format", []string{"format", "1234.5", "USD", "en-US"}, "$1,234.50"},
		{"tax", []string{"tax", "100", "EUR", "DE"}, "tax 19.00 EUR"},
		{"checkout", []string{"checkout", "100", "EUR", "DE"}, "* EUR"},
		{"arbitrage", []string{"arbitrage", "USD:EUR", "bogus"}, "aggregate risk: LOW"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(ctx, tc.args, &out))
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestRun_Errors(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	assert.ErrorIs(t, run(ctx, nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"convert", "1"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"rebalance"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"convert", "1", "USD", "XYZ"}, &out), domain.ErrUnsupportedCurrency)
	assert.ErrorIs(t, run(ctx, []string{"tax", "1", "EUR", "ZZ"}, &out), domain.ErrTaxRuleNotFound)
	assert.Error(t, run(ctx, []string{"convert", "abc", "USD", "EUR"}, &out))
}

func TestRun_Token(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"token", "ops"}, &out))
	raw := strings.TrimSpace(out.String())

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, middleware.AdminRole, claims["role"])
}
