package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"intramail/backend/internal/auth"
	jwtpkg "intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/config"
	"intramail/backend/internal/health"
	"intramail/backend/internal/logger"
	"intramail/backend/internal/monitoring"
	"intramail/backend/internal/pool"
	"intramail/backend/internal/service"
	"intramail/backend/internal/storage"
	"intramail/backend/internal/storage/hybrid"
	"intramail/backend/internal/storage/memory"
	sqlstore "intramail/backend/internal/storage/sql"
	httptransport "intramail/backend/internal/transport/http"
	"intramail/backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting intramail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化认证
	authService := auth.NewService(store)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	// 初始化服务层
	gate := service.NewAccessGate(store)
	transferService := service.NewTransferService(store, gate, cfg)
	folderService := service.NewFolderService(store, gate, cfg)
	groupService := service.NewGroupService(store, gate)
	draftService := service.NewDraftService(store, transferService, cfg)

	// 通知扇出协程池与 WebSocket Hub
	workerPool := pool.NewWorkerPool(8, 1024, log)
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, jwtManager, workerPool, metrics, log)
	transferService.SetNotifier(wsHub)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		TransferService: transferService,
		FolderService:   folderService,
		GroupService:    groupService,
		DraftService:    draftService,
		AuthService:     authService,
		JWTManager:      jwtManager,
		WebSocketHub:    wsHub,
		Store:           store,
		Metrics:         metrics,
		HealthChecker:   healthChecker,
		Logger:          log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	workerPool.Start(groupCtx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 定时清理孤儿消息内容 goroutine
	//
	// 当一条消息的所有投递视图都被永久删除后，消息本体成为孤儿，
	// 由该任务周期性清理。
	if cfg.Mail.SweepInterval > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.Mail.SweepInterval)
			defer ticker.Stop()

			log.Info("starting orphan message sweep task",
				zap.Duration("interval", cfg.Mail.SweepInterval),
			)

			for {
				select {
				case <-groupCtx.Done():
					log.Info("orphan message sweep task stopped")
					return nil
				case <-ticker.C:
					count, err := store.DeleteOrphanMessages()
					if err != nil {
						log.Error("failed to sweep orphan messages", zap.Error(err))
					} else if count > 0 {
						metrics.RecordOrphansSwept(count)
						log.Info("orphan messages swept", zap.Int("count", count))
					}
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workerPool.Stop()
		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储后端
//
// 优先级：数据库 + Redis（hybrid）> 纯数据库（sql）> 内存（开发环境）。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	if cfg.Redis.Enabled {
		log.Info("using hybrid storage",
			zap.String("database_type", cfg.Database.Type),
			zap.String("redis_address", cfg.Redis.Address),
		)
		return hybrid.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
	}

	log.Info("using database storage", zap.String("database_type", cfg.Database.Type))
	return sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
}
