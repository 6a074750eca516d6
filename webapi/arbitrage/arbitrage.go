package arbitrage

import (
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// ScanRequest lists the pairs to check, as "FROM:TO". An empty list scans
// the configured default pairs.
type ScanRequest struct {
	Pairs []string `json:"pairs,omitempty" validate:"omitempty,max=50,dive,required"`
}

func Routes(router fiber.Router, a *app.App) {
	router.Post("/api/arbitrage/scan", Scan(a))
}

// Scan checks each pair for a round-trip rate mismatch.
// @Summary Scan for arbitrage
// @Tags arbitrage
// @Accept json
// @Produce json
// @Param request body ScanRequest false "Pairs to scan"
// @Success 200 {object} common.Response
// @Router /api/arbitrage/scan [post]
func Scan(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := &ScanRequest{}
		if len(c.Body()) > 0 {
			var err error
			if input, err = common.BindAndValidate[ScanRequest](c); input == nil {
				return err
			}
		}
		report, err := a.DetectArbitrage(c.Context(), input.Pairs)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Arbitrage scan failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Arbitrage scan completed", report)
	}
}
