package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	g.POST("/auth/login", h.Login)
	g.GET("/me", authMiddleware, adminMiddleware, h.Me)
}
