// Package handler is the serverless entry point. It wraps the Fiber app in
// a net/http handler.
package handler

import (
	"log"
	"net/http"
	"sync"

	"github.com/amirasaad/fxengine/infra/initializer"
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/webapi"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var (
	once    sync.Once
	handle  http.HandlerFunc
	initErr error
)

// Handler is the main entry point of the application.
// Think of it like the main() method
func Handler(w http.ResponseWriter, r *http.Request) {
	// This is needed to set the proper request path in `*fiber.Ctx`
	r.RequestURI = r.URL.String()

	once.Do(func() { handle, initErr = build() })
	if initErr != nil {
		log.Printf("fxengine: %v", initErr)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	handle.ServeHTTP(w, r)
}

// The instance is reused across invocations, so dependencies are built once.
func build() (http.HandlerFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(deps, cfg)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	return adaptor.FiberApp(webapi.SetupApp(a)), nil
}
