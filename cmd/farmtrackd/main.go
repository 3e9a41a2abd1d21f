package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"farmtrack-backend/config"
	"farmtrack-backend/internal/api"
	"farmtrack-backend/internal/db"
	"farmtrack-backend/internal/events"
	"farmtrack-backend/internal/ingest"
	"farmtrack-backend/internal/lock"
	"farmtrack-backend/internal/logger"
	"farmtrack-backend/internal/mqtt"
	"farmtrack-backend/internal/notification"
	"farmtrack-backend/internal/reaper"
	"farmtrack-backend/internal/scoring"
	"farmtrack-backend/internal/session"
	"farmtrack-backend/internal/store"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, "farmtrackd")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("Configuration loaded", zap.String("path", configPath))

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		zl.Warn("VAPID keys are not configured, browser push is disabled")
	}
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database, zl)
	if err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var (
		locker lock.Locker = lock.NewKeyedMutex()
		feed   events.Feed = events.NopFeed{}
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		locker = lock.NewRedisLocker(rdb, "farmtrack:lock:machine:", time.Duration(cfg.Redis.LockTTLMs)*time.Millisecond)
		feed = events.NewRedisFeed(rdb, cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
		zl.Info("Redis enabled for machine locks and live events", zap.String("addr", cfg.Redis.Addr))
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions, zl.Named("notification"))
	pool.Start(ctx)

	ingestSvc := ingest.NewService(appStore, locker, feed, pool, cfg.Session.MinSessionDuration, zl.Named("ingest"))

	thresholds := session.StaleThresholds{
		StaleAfter:       cfg.Session.StaleAfter,
		IdleAfter:        cfg.Session.IdleAfter,
		NoTelemetryGrace: cfg.Session.NoTelemetryGrace,
	}
	reaperSvc := reaper.NewService(appStore, feed, pool, thresholds, cfg.Session.SweepInterval, zl.Named("reaper"))
	if cfg.Session.SweepEnabled {
		go reaperSvc.Run(ctx)
	} else {
		zl.Info("Session sweep loop disabled, relying on /api/cron/close-sessions")
	}

	scoringSvc := scoring.NewService(appStore, cfg.Leaderboard.TopN, cfg.Leaderboard.BottomN, zl.Named("scoring"))

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			zl.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer client.Disconnect()
		if err := mqtt.NewSubscriber(ingestSvc, zl.Named("mqtt")).Start(client, cfg.MQTT.Topic, cfg.MQTT.QoS); err != nil {
			zl.Fatal("Failed to subscribe to telemetry topic", zap.Error(err))
		}
		zl.Info("Subscribed to MQTT telemetry", zap.String("topic", cfg.MQTT.Topic))
	}

	handler := api.NewHandler(api.Deps{
		Store:   appStore,
		Ingest:  ingestSvc,
		Reaper:  reaperSvc,
		Scoring: scoringSvc,
		Feed:    feed,
		WebPush: &webpushOptions,
		Logger:  zl.Named("api"),
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server),
	}

	go func() {
		zl.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	zl.Info("Shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server Shutdown", zap.Error(err))
	}

	zl.Info("Server gracefully stopped")
}
