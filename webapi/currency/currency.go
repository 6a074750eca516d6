package currency

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/currency"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers the currency and locale lookup routes.
func Routes(router fiber.Router, a *app.App) {
	router.Get("/api/currencies", ListCurrencies(a.Deps.Currencies))
	router.Get("/api/currencies/:code", GetCurrency(a.Deps.Currencies))
	router.Get("/api/locales/:code", GetLocale(a))
}

// ListCurrencies returns a Fiber handler for listing active currencies.
// @Summary List currencies
// @Description Active currencies sorted by priority, optionally filtered
// @Tags currencies
// @Produce json
// @Param category query string false "fiat or crypto"
// @Param min_priority query int false "Minimum priority"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Router /api/currencies [get]
func ListCurrencies(registry *currency.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[ListQuery](c)
		if q == nil {
			return err
		}
		list := registry.List(currency.Filter{
			Category:    currency.Category(q.Category),
			MinPriority: q.MinPriority,
		})
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currencies fetched successfully", list)
	}
}

// GetCurrency returns currency information by code
// @Summary Get currency by code
// @Tags currencies
// @Produce json
// @Param code path string true "Currency code (e.g., USD, EUR)"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails
// @Router /api/currencies/{code} [get]
func GetCurrency(registry *currency.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cur, err := registry.Lookup(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unsupported currency", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currency fetched successfully", cur)
	}
}

// GetLocale resolves a locale tag, falling back to its base language.
func GetLocale(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := a.Deps.Locales.Lookup(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unsupported locale", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Locale fetched successfully", loc)
	}
}
