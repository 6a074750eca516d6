package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-value"

func protectedApp(secret ...string) *fiber.App {
	app := fiber.New()
	app.Use(Protected(secret...))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func get(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	return resp.StatusCode
}

func TestProtected_Unauthorized(t *testing.T) {
	assert.NotEqual(t, fiber.StatusOK, get(t, protectedApp(), ""))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, protectedApp(""), ""))
	assert.Equal(t, fiber.StatusBadRequest, get(t, protectedApp(secret), ""))
}

func TestProtected_Tokens(t *testing.T) {
	app := protectedApp(secret)

	token, err := IssueToken(secret, "ops", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, get(t, app, token))

	other, err := IssueToken("another-secret", "ops", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, other))

	expired, err := IssueToken(secret, "ops", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, expired))

	viewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "viewer",
		"role": "viewer",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, get(t, app, viewer))

	_, err = IssueToken("", "ops", time.Minute)
	assert.Error(t, err)
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("Missing or malformed JWT"))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
