package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"flowbuilder/internal/api"
	"flowbuilder/internal/app/editor"
	"flowbuilder/internal/db/file"
	"flowbuilder/internal/db/memory"
	"flowbuilder/internal/db/postgres"
	redisdb "flowbuilder/internal/db/redis"
	"flowbuilder/internal/domain/flow/port"
	"flowbuilder/internal/platform/config"
	applog "flowbuilder/internal/platform/log"
	"flowbuilder/internal/platform/metrics"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	defer applog.Sync()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		applog.Fatalf("❌ Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()

	collector := metrics.NewCollector("flowbuilder")
	gateway := port.NewGateway(store, cfg.Storage.Key).WithRecorder(collector)
	manager := editor.NewManager(gateway, collector)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go manager.RunJanitor(janitorCtx,
		time.Duration(cfg.Session.SweepIntervalSeconds)*time.Second,
		time.Duration(cfg.Session.IdleTimeoutSeconds)*time.Second,
	)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer
	server := api.NewServer(serverConfig, manager, gateway, collector)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		stopJanitor()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}

// openStore 按配置的驱动创建键值存储，返回的 close 函数释放连接
func openStore(cfg *config.AppConfig) (port.KVStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		applog.Warn("⚠️  Using in-memory storage, saved flows are lost on restart")
		return memory.NewStore(), noop, nil

	case config.StorageFile:
		store, err := file.NewStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, noop, err
		}
		applog.Infof("✅ File storage ready (%s)", store.Path())
		return store, noop, nil

	case config.StorageRedis:
		opt, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, noop, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		store := redisdb.NewKVStore(redisdb.KVStoreConfig{
			Client:    goredis.NewClient(opt),
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, noop, fmt.Errorf("redis connection failed: %w", err)
		}
		applog.Info("✅ Connected to Redis")
		return store, func() { _ = store.Close() }, nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, noop, err
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("failed to ping database: %w", err)
		}
		applog.Info("✅ Connected to PostgreSQL")

		store := postgres.NewKVStore(db, cfg.Database.Table)
		if err := store.EnsureTable(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		applog.Infof("✅ Flow table ready (%s)", cfg.Database.Table)
		return store, func() { db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
