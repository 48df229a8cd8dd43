package handler

import (
	"github.com/gofiber/fiber/v2"

	"dropapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, svc service.DropService) {
	app.Get("/health", HealthCheck(svc))
	app.Get("/healthz", LivenessProbe())

	app.Post("/drop", UploadFile(svc))
	app.Get("/drop/:id", DownloadFile(svc))
}
