package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/safin-krmavi/Bulltrek/internal/alert"
	"github.com/safin-krmavi/Bulltrek/internal/brokerage"
	"github.com/safin-krmavi/Bulltrek/internal/cache"
	"github.com/safin-krmavi/Bulltrek/internal/config"
	cronrunner "github.com/safin-krmavi/Bulltrek/internal/cron"
	"github.com/safin-krmavi/Bulltrek/internal/db"
	"github.com/safin-krmavi/Bulltrek/internal/handler"
	"github.com/safin-krmavi/Bulltrek/internal/lifecycle"
	"github.com/safin-krmavi/Bulltrek/internal/logger"
	"github.com/safin-krmavi/Bulltrek/internal/notify"
	"github.com/safin-krmavi/Bulltrek/internal/repository"
	gormrepository "github.com/safin-krmavi/Bulltrek/internal/repository/gorm"
	"github.com/safin-krmavi/Bulltrek/internal/submission"

	_ "github.com/safin-krmavi/Bulltrek/docs"
)

func main() {
	cfgPath := os.Getenv("BT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, "bulltrekd")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var repo repository.Repository = repository.NewMemoryStore()
	var gdb *gorm.DB
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err := db.Open(cfg.DB, logger)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)

		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		repo = gormrepository.New(dbConn.Gorm)
		gdb = dbConn.Gorm
	} else {
		logger.Warn("db.dsn not set, records are kept in memory")
	}

	store := cache.New(cfg.Cache)
	var cachePing handler.Pinger
	if rs, ok := store.(*cache.RedisStore); ok {
		cachePing = rs
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, brokerage lists will not be cached", zap.Error(err))
		}
		cancel()
		defer rs.Close()
	}

	upstreamHTTP := &http.Client{Timeout: cfg.Upstream.Timeout}
	hub := notify.NewHub(64)
	notifier := notify.FromConfig(cfg.Notify, &http.Client{Timeout: 10 * time.Second}, logger, hub)
	alerts := alert.NewManager()
	defer alerts.Close()

	submitter := &submission.Submitter{
		HTTP:               upstreamHTTP,
		Logger:             logger,
		PreflightGrowthDCA: cfg.Upstream.PreflightGrowthDCA,
		Repo:               repo,
	}
	dispatcher := &lifecycle.Dispatcher{
		HTTP:     upstreamHTTP,
		Logger:   logger,
		Repo:     repo,
		Alerts:   alerts,
		Notifier: notifier,
		Machines: lifecycle.NewMachines(cfg.Lifecycle.ExclusivePerStrategy),
		TTL:      cfg.Alerts,
	}
	brokerages := &brokerage.Service{
		HTTP:   upstreamHTTP,
		Logger: logger,
		Cache:  store,
		TTL:    cfg.Cache.BrokerageTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())
	engine.Use(handler.SessionMiddleware(cfg.Upstream.BaseURL))

	healthHandler := &handler.HealthHandler{DB: gdb, Cache: cachePing}
	healthHandler.Register(engine)
	strategyHandler := &handler.StrategyHandler{
		Submitter: submitter,
		Repo:      repo,
		Notifier:  notifier,
		Logger:    logger,
	}
	strategyHandler.Register(engine)
	lifecycleHandler := &handler.LifecycleHandler{Dispatcher: dispatcher, Repo: repo}
	lifecycleHandler.Register(engine)
	alertHandler := &handler.AlertHandler{Alerts: alerts}
	alertHandler.Register(engine)
	brokerageHandler := &handler.BrokerageHandler{Service: brokerages}
	brokerageHandler.Register(engine)
	eventsHandler := &handler.EventsHandler{Hub: hub, Logger: logger}
	eventsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Purge, cronrunner.PurgeJob(repo, cfg.Retention.ActionMaxAge, logger, nil))
		if err != nil {
			logger.Fatal("cron add purge failed", zap.Error(err))
		}
		if sw, ok := store.(cache.Sweeper); ok {
			_, err = cronRunner.Add("0 */5 * * * *", func(context.Context) {
				if n := sw.Sweep(); n > 0 {
					logger.Debug("cache sweep", zap.Int("expired", n))
				}
			})
			if err != nil {
				logger.Fatal("cron add cache sweep failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown requested")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
