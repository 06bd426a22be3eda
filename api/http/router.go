package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cv-tailor/api/http/handlers"
)

// Register wires all HTTP routes onto given Fiber app.
func Register(
	app *fiber.App,
	auth *handlers.AuthHandler,
	health *handlers.HealthHandler,
	upload *handlers.UploadHandler,
	poolH *handlers.PoolHandler,
	apps *handlers.ApplicationHandler,
	tailorH *handlers.TailorHandler,
	authMW fiber.Handler,
) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Health and readiness endpoints for probes/monitoring
	v1.Get("/health", health.Health)
	v1.Get("/ready", health.Ready)

	a := v1.Group("/auth")
	a.Post("/register", auth.Register)
	a.Post("/login", auth.Login)
	a.Get("/me", authMW, auth.Me)

	// Experience pool
	p := v1.Group("/pool", authMW)
	p.Get("/", poolH.Get)
	p.Post("/upload", upload.Upload)
	p.Post("/reclassify", poolH.Reclassify)
	p.Post("/re-embed", poolH.ReEmbed)
	p.Put("/experiences/:id", poolH.UpdateExperience)
	p.Put("/activities/:id", poolH.UpdateActivity)
	p.Delete("/:category/:id", poolH.Delete)

	// Applications and tailoring
	ap := v1.Group("/applications", authMW)
	ap.Post("/", apps.Create)
	ap.Get("/", apps.List)
	ap.Get("/:id", apps.Get)
	ap.Put("/:id", apps.Update)
	ap.Delete("/:id", apps.Delete)
	ap.Get("/:id/version", apps.LatestVersion)
	ap.Post("/:id/tailor", tailorH.Run)
	ap.Post("/:id/selection", tailorH.ApplySelection)
}
