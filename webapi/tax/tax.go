package tax

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// CalculateRequest is the body of POST /api/tax.
type CalculateRequest struct {
	Amount       *common.Amount `json:"amount" validate:"required"`
	Currency     string         `json:"currency" validate:"required,alphanum,min=2,max=10"`
	Jurisdiction string         `json:"jurisdiction" validate:"required,max=16"`
	ProductType  string         `json:"product_type,omitempty"`
}

func Routes(router fiber.Router, a *app.App) {
	router.Post("/api/tax", Calculate(a))
}

// Calculate applies the jurisdiction's active tax rule.
// @Summary Calculate tax
// @Tags tax
// @Accept json
// @Produce json
// @Param request body CalculateRequest true "Tax request"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /api/tax [post]
func Calculate(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CalculateRequest](c)
		if input == nil {
			return err
		}
		amount, err := input.Amount.Decimal()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := a.CalculateTax(c.Context(), amount, input.Currency, input.Jurisdiction, input.ProductType)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Tax calculation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Tax calculated", res)
	}
}
