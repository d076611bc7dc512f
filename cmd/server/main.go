// Package main provides the Salon chat server. It serves the HTTP API and
// the WebSocket endpoint on a single listener, backed by PostgreSQL for
// credentials and in-memory stores for sessions and rooms.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/salonchat/salon/internal/config"
	"github.com/salonchat/salon/internal/httpapi"
	"github.com/salonchat/salon/internal/hub"
	"github.com/salonchat/salon/internal/observability"
	"github.com/salonchat/salon/internal/realtime"
	"github.com/salonchat/salon/internal/room"
	"github.com/salonchat/salon/internal/server"
	"github.com/salonchat/salon/internal/session"
	"github.com/salonchat/salon/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting Salon server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("allowed_origin", cfg.HTTP.AllowedOrigin),
	)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// Build services
	users := postgres.NewUserRepository(pool.DB())
	sessions := session.NewStore(cfg.Session.TTL)
	rooms := room.NewRegistry()
	connections := hub.New(sessions, rooms, cfg.Realtime.OutboxSize, logger)

	realtimeGateway := realtime.NewGateway(
		connections, cfg.Realtime, cfg.Session.CookieName, cfg.HTTP.AllowedOrigin, logger)
	apiGateway := httpapi.NewGateway(users, sessions, rooms, cfg.Session.CookieName, logger)
	routes := httpapi.Routes(apiGateway, cfg.HTTP.AllowedOrigin, realtimeGateway)
	httpServer := httpapi.NewServer(cfg.HTTP, routes, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			return httpServer.Start()
		},
		StopFn: func() {
			httpServer.Stop()
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
