package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/auth"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/screening"
	"hiring-pipeline/internal/workflow"
	"hiring-pipeline/pkg/logger"
	"hiring-pipeline/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var locker workflow.Locker = workflow.NewKeyedMutex()
	if cfg.Workflow.LockBackend == config.LockBackendRedis {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = workflow.NewRedisLocker(rdb, cfg.Workflow.LockTTL)
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	svc, err := workflow.NewService(workflow.Deps{
		Applications: applications.NewPostgresRepo(db),
		Screenings:   screening.NewPostgresRepo(db),
		Locker:       locker,
		Audit:        auditSvc,
		Logger:       log,
	}, cfg.Workflow)
	if err != nil {
		log.Error("workflow init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		Auth:          authManager,
		Workflow:      svc,
		Audit:         auditSvc,
		WebhookSecret: cfg.Vendor.WebhookSecret,
		EnableLogin:   cfg.App.Env == "local" || cfg.App.Env == "dev",
		Ready: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"lock_backend", cfg.Workflow.LockBackend,
			"max_completed_calls", cfg.Workflow.MaxCompletedCalls,
			"max_retries", cfg.Workflow.MaxRetries,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
