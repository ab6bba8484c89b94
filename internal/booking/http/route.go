package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes. Customers may only submit
// requests; everything else is for admins. createLimiter guards the public
// submission endpoint.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware, createLimiter gin.HandlerFunc) {
	// Availability lives under the room it describes.
	g.GET("/rooms/:id/availability", h.Availability)

	group := g.Group("/bookings")

	// === Public Routes ===
	group.POST("", createLimiter, h.Create)

	// === Admin Routes ===
	admin := group.Group("")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.GET("", h.List)
		admin.GET("/export", h.Export)
		admin.GET("/:id", h.Get)
		admin.PATCH("/:id", h.Edit)
		admin.PATCH("/:id/status", h.UpdateStatus)
	}
}
