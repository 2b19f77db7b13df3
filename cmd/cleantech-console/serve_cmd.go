package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleantech-console/common/database"
	commonlogger "cleantech-console/common/logger"
	"cleantech-console/common/mqtt"
	commonredis "cleantech-console/common/redis"
	"cleantech-console/internal/backend"
	"cleantech-console/internal/config"
	"cleantech-console/internal/events"
	httpapi "cleantech-console/internal/http"
	"cleantech-console/internal/repository"
	"cleantech-console/internal/service"
	"cleantech-console/internal/session"
	"cleantech-console/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger, err := commonlogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "cleantech-console")
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Sessions and screen state: Redis when enabled and reachable, memory otherwise.
	var kv store.KV = store.NewMemoryKV()
	var redisClient *commonredis.Client
	if cfg.RedisEnabled {
		if c, err := commonredis.Connect(ctx, &cfg.Redis); err != nil {
			logger.Warn("Redis enabled but unreachable, keeping sessions in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			redisClient = c
			kv = store.NewRedisKV(c)
			logger.Info("Redis enabled for cleantech-console", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Action log: Postgres when enabled and reachable, memory otherwise.
	var actions repository.ActionLogsRepository = repository.NewMemoryActionLogsRepo()
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.Open(ctx, &cfg.Database); err == nil {
			repo := repository.NewPostgresActionLogsRepository(d)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Warn("action log schema setup failed, keeping the action log in memory", zap.Error(err))
				_ = database.Close(d)
			} else {
				db = d
				actions = repo
				logger.Info("DB enabled for cleantech-console")
			}
		} else {
			logger.Warn("DB enabled but connection failed, keeping the action log in memory", zap.Error(err))
		}
	}

	client := backend.NewClient(backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		RetryCount: cfg.Backend.RetryCount,
	}, logger)

	registry := service.DefaultRegistry()
	sessions := session.NewStore(kv, cfg.Console.SessionTTL)
	workspaces := service.NewWorkspaces(
		registry,
		client,
		backend.NewLocationLoader(client),
		store.NewStateStore(kv, cfg.Console.StateTTL),
		cfg.Console.PageSize,
		logger,
	)

	var publisher events.Publisher = events.Nop{}
	var bus *events.Bus
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if mc, err := mqtt.NewClient(&cfg.MQTT.MQTTConfig, logger); err == nil {
			mqttClient = mc
			bus = events.NewBus(mc, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, cfg.MQTT.ClientID, logger)
			publisher = bus
		} else {
			logger.Warn("MQTT enabled but connection failed", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		}
	}
	var streamBroker *events.StreamBroker
	if bus == nil && redisClient != nil {
		streamBroker = events.NewStreamBroker(redisClient, cfg.Console.EventStream, cfg.MQTT.ClientID, int64(cfg.Console.EventStreamMaxLen), logger)
		bus = events.NewBus(streamBroker, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, cfg.MQTT.ClientID, logger)
		publisher = bus
		logger.Info("mutation events carried over Redis stream", zap.String("stream", cfg.Console.EventStream))
	}
	if bus == nil {
		logger.Info("no MQTT broker or Redis, mutation events stay local")
	}

	console := service.NewConsole(service.Deps{
		Registry:   registry,
		Workspaces: workspaces,
		Client:     client,
		Sessions:   sessions,
		Actions:    actions,
		Events:     publisher,
		Logger:     logger,
	})
	if bus != nil {
		if err := bus.Subscribe(console.HandleEvent); err != nil {
			logger.Warn("failed to subscribe to mutation events", zap.Error(err))
		}
	}

	router := httpapi.NewRouter(logger)
	router.RegisterConsoleRoutes(httpapi.NewConsoleHandler(console, sessions, cfg.Console.SessionTTL, logger))
	router.RegisterOpsRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	go service.RunSweeper(ctx, workspaces, cfg.Console.SweepInterval, cfg.Console.WorkspaceIdle, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if streamBroker != nil {
		streamBroker.Close()
	}
	_ = commonredis.Close(redisClient)
	_ = database.Close(db)
	return runErr
}
