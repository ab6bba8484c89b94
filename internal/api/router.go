package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/admin"
	adminHttp "github.com/nekogravitycat/escape-room-booking/internal/admin/http"
	"github.com/nekogravitycat/escape-room-booking/internal/auth"
	"github.com/nekogravitycat/escape-room-booking/internal/booking"
	bookingHttp "github.com/nekogravitycat/escape-room-booking/internal/booking/http"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	roomHttp "github.com/nekogravitycat/escape-room-booking/internal/room/http"
)

// ReadinessCheck reports whether a backing dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	IsProduction         bool
	ProdOrigins          string
	Logger               zerolog.Logger
	AdminService         admin.Service
	RoomService          room.Service
	BookingService       booking.Service
	JWTManager           *auth.JWTManager
	BookingRatePerMinute int
	Ready                map[string]ReadinessCheck
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, logging, metrics, auth) and registering module routes.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger), Metrics())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader, "Content-Disposition"}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", readyz(cfg.Ready))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	adminMiddleware := RequireAdmin(cfg.AdminService)

	adminHandler := adminHttp.NewHandler(cfg.AdminService, cfg.JWTManager)
	roomHandler := roomHttp.NewHandler(cfg.RoomService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	v1 := r.Group("/v1")
	{
		adminHttp.RegisterRoutes(v1, adminHandler, authMiddleware, adminMiddleware)
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware, adminMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, adminMiddleware, RateLimit(cfg.BookingRatePerMinute))
	}

	return r
}

func readyz(checks map[string]ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, name+" not ready")
				return
			}
		}
		c.String(http.StatusOK, "ready")
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
