package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/app"
	"github.com/nekogravitycat/escape-room-booking/internal/config"
	"github.com/nekogravitycat/escape-room-booking/internal/db"
	"github.com/nekogravitycat/escape-room-booking/internal/logger"
	"github.com/nekogravitycat/escape-room-booking/internal/metrics"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config decides the real level and format; until then log JSON to stderr.
	bootLog := logger.NewWithWriter(os.Stderr, "info", false)

	// Load config
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.LogLevel, !cfg.IsProduction)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate db")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}

	container := app.NewContainer(app.Config{
		IsProduction:         cfg.IsProduction,
		ProdOrigins:          cfg.ProdOrigins,
		Logger:               log,
		DBPool:               pool,
		Redis:                rdb,
		RoomCacheTTL:         cfg.RoomCacheTTL,
		JWTSecret:            cfg.JWTSecret,
		JWTTTL:               cfg.JWTAccessTokenTTL,
		BcryptCost:           cfg.BcryptCost,
		Location:             cfg.Location,
		StrictPricing:        cfg.BookingStrictPricing,
		BookingWriteTimeout:  cfg.BookingWriteTimeout,
		BookingRatePerMinute: cfg.BookingRatePerMinute,
	})

	if cfg.AdminBootstrapEmail != "" {
		created, err := container.AdminService.EnsureBootstrap(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword, "Owner")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin")
		}
		if created {
			log.Info().Str("email", cfg.AdminBootstrapEmail).Msg("bootstrap admin created")
		}
	}

	if cfg.RoomsConfigPath != "" {
		if err := config.WatchRooms(ctx, cfg.RoomsConfigPath, cfg.RoomsPollInterval, container.RoomService, log); err != nil {
			log.Fatal().Err(err).Str("path", cfg.RoomsConfigPath).Msg("failed to load rooms config")
		}
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.MetricsAddr, log)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("timezone", cfg.Location.String()).Msg("server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
}

func startMetricsServer(ctx context.Context, addr string, log zerolog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	log.Info().Str("addr", addr).Msg("metrics server running")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server error")
	}
}
