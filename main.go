package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickchat/internal/config"
	"quickchat/internal/database"
	"quickchat/internal/handlers"
	"quickchat/internal/logger"
	"quickchat/internal/media"
	"quickchat/internal/presence"
	"quickchat/internal/routes"
	"quickchat/internal/store"
	"quickchat/internal/utils"
	ws "quickchat/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

func main() {
	envLoaded := config.Load()
	cfg := config.LoadServer()
	log := logger.New(cfg.LogLevel, false)

	if !envLoaded {
		log.Info().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		st = store.NewPostgres(pool)
		log.Info().Msg("Database connected")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("DATABASE_URL not set, messages are kept in memory")
	}

	// Presence: Redis when configured, process-local otherwise
	var registry presence.Registry = presence.NewMemory()
	if cfg.RedisURL != "" {
		client, err := presence.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()
		registry = presence.NewRedis(client, presence.DefaultTTL)
		log.Info().Msg("Presence backed by Redis")
	}

	hub := ws.NewHub(registry, log)
	h := handlers.New(st, hub, utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL), media.NewStorage(cfg.UploadDir), log)

	app := fiber.New(fiber.Config{
		AppName:   "QuickChat API",
		BodyLimit: 8 * 1024 * 1024, // inline images arrive base64-encoded
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.ClientOrigin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, token",
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, h)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		return app.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited")
}
