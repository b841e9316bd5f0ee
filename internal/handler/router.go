package handler

import (
	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything mounted under /api/v1.
type Handlers struct {
	Auth      *AuthHandler
	Catalogue *CatalogueHandler
	Movements *MovementHandler
	Ledger    *LedgerHandler
	Reports   *ReportHandler
	Dashboard *DashboardHandler
	Users     *UserHandler
}

// Register mounts the API. Only the auth endpoints are reachable without
// requireAuth.
func Register(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/validate-token", h.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/dashboard/stats", h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/movement", h.Dashboard.GetStockMovement)

	h.Catalogue.Register(protected)
	h.Movements.Register(protected)
	h.Ledger.Register(protected)
	h.Reports.Register(protected)
	h.Users.Register(protected)
}
