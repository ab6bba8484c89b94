package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/escape-room-booking/internal/admin"
	"github.com/nekogravitycat/escape-room-booking/internal/auth"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/response"
)

type Handler struct {
	service    admin.Service
	jwtManager *auth.JWTManager
}

func NewHandler(service admin.Service, jwtManager *auth.JWTManager) *Handler {
	return &Handler{service: service, jwtManager: jwtManager}
}

// POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "email and password are required")
		return
	}

	a, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(a.ID, a.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(h.jwtManager.TTL().Seconds()),
		Admin:       NewAdminResponse(a),
	})
}

// GET /v1/me
func (h *Handler) Me(c *gin.Context) {
	a, err := h.service.GetByID(c.Request.Context(), auth.GetAdminID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAdminResponse(a))
}
