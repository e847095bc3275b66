package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskhub/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskhub/internal/infrastructure/redis"
	"github.com/fastygo/taskhub/internal/mail"
	"github.com/fastygo/taskhub/internal/middleware"
	"github.com/fastygo/taskhub/internal/realtime"
	"github.com/fastygo/taskhub/internal/router"
	"github.com/fastygo/taskhub/internal/services"
	"github.com/fastygo/taskhub/internal/services/lifecycle"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/pkg/logger"
	"github.com/fastygo/taskhub/repository/postgres"
	notifyUC "github.com/fastygo/taskhub/usecase/notify"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(context.Background(), cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Error("migrations failed, continuing with existing schema", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid postgres configuration", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	registry := realtime.NewRegistry(realtime.Options{
		MaxClients: cfg.Realtime.MaxConnections,
		QueueSize:  cfg.Realtime.SendQueueSize,
	}, zapLogger)
	manager.Register("realtime_registry", func(ctx context.Context) error {
		registry.Close()
		return nil
	})

	var remote services.RemotePublisher
	monitorDeps := monitor.Deps{Postgres: pool, Clients: registry}
	if cfg.Redis.Enabled() {
		redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})

		relay := realtime.NewRelay(redisClient, cfg.Redis.EventsChannel, registry, zapLogger)
		manager.Go("realtime_relay", relay.Run)
		remote = relay
		monitorDeps.Redis = redisClient
	}

	mon := monitor.New(monitorDeps, cfg.Health.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	heartbeat := services.NewHeartbeat(registry, cfg.Realtime.PingInterval, zapLogger)
	heartbeat.Start()
	manager.Register("heartbeat", func(ctx context.Context) error {
		heartbeat.Stop(ctx)
		return nil
	})

	bridge := services.NewEventBridge(registry, remote, zapLogger)
	taskRepo := postgres.NewTaskRepository(pool)

	taskUseCase := taskUC.New(taskRepo, bridge, zapLogger)
	notifyUseCase := notifyUC.New(
		taskRepo,
		mail.NewSMTPSender(cfg.Mail.SMTP, cfg.Mail.DialTimeout, zapLogger),
		map[domain.MailProtocol]notifyUC.InboxReader{
			domain.ProtocolIMAP: mail.NewIMAPReader(cfg.Mail.IMAP, cfg.Mail.DialTimeout, zapLogger),
			domain.ProtocolPOP3: mail.NewPOP3Reader(cfg.Mail.POP3, cfg.Mail.DialTimeout, zapLogger),
		},
		notifyUC.Options{
			RecentLimit:         cfg.Mail.RecentLimit,
			PlaceholderFallback: cfg.Mail.PlaceholderFallback,
		},
		zapLogger,
	)
	if cfg.Mail.PlaceholderFallback {
		zapLogger.Warn("inbox placeholder fallback enabled; failed polls will return canned entries")
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:     apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Email:    apiHandler.NewEmailHandler(notifyUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Realtime: apiHandler.NewRealtimeHandler(appCtx, registry, cfg.Realtime.WriteTimeout, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      router.Chain(r.Handler, middleware.CORS, middleware.RequestLogger(zapLogger)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func(ctx context.Context) error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	manager.Wait()

	if err := manager.Err(); err != nil {
		zapLogger.Error("stopping after component failure", zap.Error(err))
	}
	shutdownStart := time.Now()
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	zapLogger.Info("shutdown complete", zap.Duration("took", time.Since(shutdownStart)))
}
