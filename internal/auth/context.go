package auth

import "github.com/gin-gonic/gin"

const (
	ctxAdminID    = "adminID"
	ctxAdminEmail = "adminEmail"
)

// GetAdminID returns the authenticated admin's ID or empty string.
func GetAdminID(c *gin.Context) string {
	return c.GetString(ctxAdminID)
}

// GetAdminEmail returns the authenticated admin's email or empty string.
func GetAdminEmail(c *gin.Context) string {
	return c.GetString(ctxAdminEmail)
}
