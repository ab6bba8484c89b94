package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/admin"
	"github.com/nekogravitycat/escape-room-booking/internal/api"
	"github.com/nekogravitycat/escape-room-booking/internal/auth"
	"github.com/nekogravitycat/escape-room-booking/internal/booking"
	"github.com/nekogravitycat/escape-room-booking/internal/db"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       zerolog.Logger
	DBPool       *pgxpool.Pool
	// Redis is optional; nil disables the room cache.
	Redis        *redis.Client
	RoomCacheTTL time.Duration
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	Location             *time.Location
	StrictPricing        bool
	BookingWriteTimeout  time.Duration
	BookingRatePerMinute int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	AdminService   admin.Service
	RoomService    room.Service
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Admin Module
	adminRepo := admin.NewPgxRepository(cfg.DBPool)
	adminService := admin.NewService(adminRepo, passwordHasher, cfg.Logger)

	// Room Module
	roomRepo := room.NewCachedRepository(room.NewPgxRepository(cfg.DBPool), cfg.Redis, cfg.RoomCacheTTL, cfg.Logger)
	roomService := room.NewService(roomRepo, cfg.Logger)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, roomService, booking.Options{
		Location:      cfg.Location,
		StrictPricing: cfg.StrictPricing,
		WriteTimeout:  cfg.BookingWriteTimeout,
	}, cfg.Logger)

	ready := map[string]api.ReadinessCheck{"postgres": db.Ping(cfg.DBPool)}
	if cfg.Redis != nil {
		ready["redis"] = func(ctx context.Context) error { return cfg.Redis.Ping(ctx).Err() }
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:         cfg.IsProduction,
		ProdOrigins:          cfg.ProdOrigins,
		Logger:               cfg.Logger,
		AdminService:         adminService,
		RoomService:          roomService,
		BookingService:       bookingService,
		JWTManager:           jwtManager,
		BookingRatePerMinute: cfg.BookingRatePerMinute,
		Ready:                ready,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		AdminService:   adminService,
		RoomService:    roomService,
		BookingService: bookingService,
	}
}
