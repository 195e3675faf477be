package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sealedauctiongo/internal/config"
	"sealedauctiongo/internal/database/db_client"
	"sealedauctiongo/internal/events"
	"sealedauctiongo/internal/http/http_server"
	"sealedauctiongo/internal/redis/redis_client"
	"sealedauctiongo/internal/redis/watcher/auctionwatcher"
	"sealedauctiongo/internal/sealed"
	"sealedauctiongo/internal/services/platform"
	"sealedauctiongo/internal/syncdb"
	"sealedauctiongo/internal/syncevents"
	"sealedauctiongo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (event fan-out, audit stream, expiry timers)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres db client (audit mirror)
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Sealed-value key manager (also the confidential comparator)
	keyManager, err := sealed.NewKeyManager(cfg.SealedKeyHex)
	if err != nil {
		Log.Fatal("sealed-key", zap.Error(err))
	}

	minIncrement, err := decimal.NewFromString(cfg.MinBidIncrement)
	if err != nil {
		Log.Fatal("min-bid-increment", zap.Error(err))
	}

	// 6. The platform core: registry, state machine, custody, admin policy
	platformSvc := platform.NewPlatformService(platform.Config{
		Owner:           cfg.OwnerAddress,
		FeeBps:          cfg.PlatformFeeBps,
		MaxDuration:     cfg.MaxAuctionDuration,
		MinBidIncrement: minIncrement,
	}, keyManager, events.NewRedisBus(redisClient), platform.NullTreasury{}, redisClient)

	// 7. Background: expiry watcher settles auctions whose duration elapsed
	go auctionwatcher.Run(ctx, redisClient, platformSvc)

	// 8. Background: Postgres mirrors (registry snapshot + event stream)
	syncdb.Run(ctx, platformSvc, pgDb)
	syncevents.Run(ctx, redisClient, pgDb)

	// 9. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, platformSvc)

	// 10. HTTP + WS server; drain in-flight requests on SIGINT/SIGTERM
	httpServer := http_server.NewHttpServer(cfg, wsSrv, platformSvc)
	go func() {
		<-ctx.Done()
		if err := httpServer.Dispose(); err != nil {
			Log.Error("HTTP server shutdown", zap.Error(err))
		}
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
