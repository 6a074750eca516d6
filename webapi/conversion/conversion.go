package conversion

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/money"
	"github.com/amirasaad/fxengine/pkg/service/conversion"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers the conversion and formatting routes.
func Routes(router fiber.Router, a *app.App) {
	router.Post("/api/convert", Convert(a))
	router.Post("/api/format", Format(a))
}

// Convert converts an amount between two currencies.
// @Summary Convert currency
// @Description Converts with the configured fee and rounding unless overridden
// @Tags conversion
// @Accept json
// @Produce json
// @Param request body ConvertRequest true "Conversion request"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /api/convert [post]
func Convert(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[ConvertRequest](c)
		if input == nil {
			return err
		}
		amount, err := input.Amount.Decimal()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		var opts []conversion.Option
		if input.FeeRate != nil {
			feeRate, err := input.FeeRate.Decimal()
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid fee rate", err)
			}
			opts = append(opts, conversion.WithFeeRate(feeRate))
		}
		if input.FeeMode != "" {
			opts = append(opts, conversion.WithFeeMode(conversion.FeeMode(input.FeeMode)))
		}
		if input.Rounding != "" {
			opts = append(opts, conversion.WithRounding(money.RoundingMode(input.Rounding)))
		}
		res, err := a.ConvertCurrency(c.Context(), amount, input.From, input.To, opts...)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Conversion failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion completed", res)
	}
}

// Format renders an amount for a locale; the locale defaults to the
// configured one.
func Format(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[FormatRequest](c)
		if input == nil {
			return err
		}
		amount, err := input.Amount.Decimal()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		price, err := a.FormatPrice(amount, input.Currency, input.Locale)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Formatting failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Price formatted", price)
	}
}
