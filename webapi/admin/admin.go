// Package admin exposes health, metrics and table reload endpoints.
package admin

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/middleware"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Routes(router fiber.Router, a *app.App) {
	router.Get("/health", Health(a))
	router.Get("/api/metrics", Snapshot(a))
	if a.Deps.Gatherer != nil {
		router.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(a.Deps.Gatherer, promhttp.HandlerOpts{}),
		))
	}
	secret := ""
	if a.Config.Auth != nil && a.Config.Auth.Jwt != nil {
		secret = a.Config.Auth.Jwt.Secret
	}
	router.Post("/api/admin/reload", middleware.Protected(secret), Reload(a))
}

// Health probes the rate sources. It answers 503 when none is reachable.
// @Summary Health check
// @Tags admin
// @Produce json
// @Success 200 {object} app.Health
// @Failure 503 {object} app.Health
// @Router /health [get]
func Health(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := a.Health(c.Context())
		status := fiber.StatusOK
		if h.Status != "ok" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(h)
	}
}

// Snapshot returns the in-process counters as JSON.
func Snapshot(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Metrics snapshot", a.GetMetricsSnapshot())
	}
}

// Reload re-reads the fixture tables. A rejected reload keeps the
// previous tables.
// @Summary Reload static tables
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /api/admin/reload [post]
// @Security Bearer
func Reload(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Reload(c.Context()); err != nil {
			return common.ProblemDetailsJSON(c, "Reload failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Tables reloaded", fiber.Map{
			"currencies": a.Deps.Currencies.Count(),
			"tax_rules":  len(a.Deps.TaxRules.Rules()),
		})
	}
}
