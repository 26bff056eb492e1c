package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notehubgo/internal/config"
	"notehubgo/internal/database/db_client"
	"notehubgo/internal/editlog"
	"notehubgo/internal/http/http_server"
	"notehubgo/internal/hub"
	"notehubgo/internal/redis/redis_client"
	"notehubgo/internal/services/identity"
	"notehubgo/internal/services/note"
	"notehubgo/internal/sweeper"
	"notehubgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Services: identity lookup + note store
	identityService := identity.NewIdentityService(pgDb)
	noteService := note.NewNoteService(pgDb)

	// 6. Background: edit-audit stream ➜ Postgres
	editlog.Run(ctx, redisClient, pgDb)

	// 7. Presence hub + WS transport + cross-instance fan-out
	registry := ws.NewRegistry()
	presenceHub := hub.NewHub(registry)
	wsSrv := ws.NewWsServer(presenceHub, registry, redisClient, identityService, editlog.NewRecorder(redisClient))

	// 8. Background: idle-presence sweep
	sweeper.Run(ctx, wsSrv, cfg.PresenceSweepInterval, cfg.PresenceIdleTimeout)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, noteService, identityService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
