package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/config"
	"arcstore-api/internal/handler"
	"arcstore-api/internal/lock"
	"arcstore-api/internal/logger"
	"arcstore-api/internal/middleware"
	"arcstore-api/internal/repository"
	"arcstore-api/internal/router"
	"arcstore-api/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := logger.MustNew(cfg.App.Environment, cfg.App.Debug)
	defer log.Sync()

	log.Info("starting arcstore api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// Initialize repositories
	gameRepo, err := repository.NewSQLiteGameRepository(cfg.GameDB.Path, log)
	if err != nil {
		log.Fatal("failed to open game database", zap.Error(err))
	}
	defer gameRepo.Close()

	catalogRepo, err := repository.NewCatalogRepository(cfg.CatalogDB.Type, cfg.CatalogDB.DSN(), log)
	if err != nil {
		log.Fatal("failed to open catalog database", zap.String("type", cfg.CatalogDB.Type), zap.Error(err))
	}
	defer catalogRepo.Close()

	eventRepo, err := repository.NewSQLiteEventRepository(cfg.EventDB.Path, log)
	if err != nil {
		log.Fatal("failed to open event database", zap.Error(err))
	}
	defer eventRepo.Close()

	// Redis backs tokens, the catalog cache and the per-user lock when reachable
	var (
		appCache    cache.Cache
		locker      lock.Locker
		cacheType   string
		redisClient *redis.Client
	)
	redisClient, err = cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		log.Warn("redis unavailable, using in-process cache and lock", zap.Error(err))
		memCache := cache.NewMemoryCache(time.Minute)
		defer memCache.Close()
		appCache = memCache
		locker = lock.NewMemoryLocker()
		cacheType = "memory"
	} else {
		defer redisClient.Close()
		appCache = cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
		locker = lock.NewRedisLocker(redisClient, cfg.Cache.KeyPrefix, cfg.Store.LockTTL, log.Named("lock"))
		cacheType = "redis"
		log.Info("redis client initialized", zap.String("addr", cfg.Cache.RedisAddress()))
	}

	// Initialize services
	tokenService := service.NewTokenService(appCache, cfg.Cache.TokenTTL, log)
	accountService := service.NewAccountService(gameRepo)
	storeService := service.NewStoreService(catalogRepo, gameRepo, locker, appCache, service.StoreConfig{
		OrderTTL:       cfg.Store.OrderTTL,
		AcquireTimeout: cfg.Store.AcquireTimeout,
		RenamePrice:    cfg.Store.RenamePrice,
		GiftEnabled:    cfg.Features.GiftEnabled,
		CatalogTTL:     cfg.Cache.TTL,
	}, log)
	lotteryService := service.NewLotteryService(eventRepo, gameRepo, log)

	reaper := service.NewReaperScheduler(gameRepo, service.ReaperConfig{Interval: cfg.Reaper.Interval}, log)
	if cfg.Reaper.Enabled {
		reaper.Start()
		defer reaper.Stop()
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log.Named("ratelimit"))
	stopCleanup := make(chan struct{})
	rateLimiter.StartCleanup(5*time.Minute, stopCleanup)
	defer close(stopCleanup)

	// Initialize handlers
	checks := map[string]handler.Pinger{
		"game_db":    gameRepo,
		"catalog_db": catalogRepo,
		"event_db":   eventRepo,
	}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	if cfg.App.LoginKey == "" {
		log.Warn("LOGIN_KEY is empty, admin routes are disabled")
	}
	if !cfg.Features.GiftEnabled {
		log.Info("gift workflow disabled")
	}

	// Create router
	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, checks),
		StoreHandler:   handler.NewStoreHandler(storeService, log),
		AccountHandler: handler.NewAccountHandler(accountService, storeService, log),
		AuthHandler:    handler.NewAuthHandler(accountService, tokenService, log),
		LotteryHandler: handler.NewLotteryHandler(lotteryService, log),
		AdminHandler:   handler.NewAdminHandler(gameRepo, reaper, cfg.CatalogDB.Type, cacheType, log),
		Tokens:         tokenService,
		LoginKey:       cfg.App.LoginKey,
		RateLimiter:    rateLimiter,
		Logger:         log.Named("http"),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	fmt.Println("Goodbye!")
}
