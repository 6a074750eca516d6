// Package middleware holds fiber middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"strings"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the role claim required by Protected.
const AdminRole = "admin"

// Protected requires a valid HS256 bearer token signed with secret and
// carrying the admin role. Without a secret every request is rejected.
func Protected(secret ...string) fiber.Handler {
	key := ""
	if len(secret) > 0 {
		key = secret[0]
	}
	if key == "" {
		return func(c *fiber.Ctx) error {
			return jwtError(c, errors.New("admin authentication is not configured"))
		}
	}
	return jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(key)},
		ErrorHandler:   jwtError,
		SuccessHandler: requireAdmin,
	})
}

func requireAdmin(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return jwtError(c, errors.New("invalid or expired JWT"))
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != AdminRole {
		return problem(c, fiber.StatusForbidden, "Forbidden", "admin role required")
	}
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), jwtware.ErrJWTMissingOrMalformed.Error()) {
		return problem(c, fiber.StatusBadRequest, "Bad Request", err.Error())
	}
	return problem(c, fiber.StatusUnauthorized, "Unauthorized", err.Error())
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}

// IssueToken signs an admin token valid for expiry.
func IssueToken(secret, subject string, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": AdminRole,
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
