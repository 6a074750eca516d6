package checkout

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers HTTP routes for checkout currency selection.
func Routes(router fiber.Router, a *app.App) {
	router.Get("/api/checkout/options", GetOptions(a))
	router.Get("/api/checkout/recommend", Recommend(a))
}

// GetOptions returns a Fiber handler listing the payable currencies of a region.
// @Summary Get checkout currency options
// @Description Converts the base price into every currency offered in the region
// @Tags checkout
// @Produce json
// @Param amount query string true "Base amount"
// @Param currency query string true "Base currency"
// @Param region query string false "ISO 3166 region code"
// @Success 200 {object} common.Response "Checkout options"
// @Failure 400 {object} common.ProblemDetails "Invalid query"
// @Failure 422 {object} common.ProblemDetails "Unsupported currency"
// @Router /api/checkout/options [get]
func GetOptions(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[OptionsQuery](c)
		if q == nil {
			return err
		}
		amount, err := money.ParseAmount(q.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		opts, err := a.GetCheckoutOptions(c.Context(), amount, q.Currency, q.Region)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to build checkout options", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Checkout options fetched", opts)
	}
}

// Recommend returns the preferred currency for a region. Unknown regions
// get the default region's currency.
func Recommend(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[RecommendQuery](c)
		if q == nil {
			return err
		}
		code := a.RecommendCurrency(q.Region)
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currency recommended", RecommendResponse{
			Region:   q.Region,
			Currency: code.String(),
		})
	}
}
