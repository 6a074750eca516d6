// Package webapi provides the HTTP API of the engine. Handlers live in
// sub-packages per domain:
// - currency: currency and locale lookups
// - conversion: conversion and price formatting
// - tax: tax calculation
// - checkout: checkout currency options
// - arbitrage: arbitrage scans
// - admin: health, metrics and table reload
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/webapi/admin"
	arbitrageweb "github.com/amirasaad/fxengine/webapi/arbitrage"
	checkoutweb "github.com/amirasaad/fxengine/webapi/checkout"
	"github.com/amirasaad/fxengine/webapi/common"
	conversionweb "github.com/amirasaad/fxengine/webapi/conversion"
	currencyweb "github.com/amirasaad/fxengine/webapi/currency"
	taxweb "github.com/amirasaad/fxengine/webapi/tax"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "fxengine",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, utils.StatusMessage(common.ErrorToStatusCode(err)), err)
		},
	})

	fiberApp.Use(requestid.New())
	fiberApp.Use(recover.New())

	// Uses X-Forwarded-For when behind a proxy, then X-Real-IP, then the
	// peer address.
	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        rl.MaxRequests,
			Expiration: rl.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					first, _, _ := strings.Cut(forwardedFor, ",")
					return strings.TrimSpace(first)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("FX engine is running")
	})

	currencyweb.Routes(fiberApp, a)
	conversionweb.Routes(fiberApp, a)
	taxweb.Routes(fiberApp, a)
	checkoutweb.Routes(fiberApp, a)
	arbitrageweb.Routes(fiberApp, a)
	admin.Routes(fiberApp, a)
	return fiberApp
}
