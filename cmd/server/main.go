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

	"github.com/aydrian/tabnine-charity-activations/internal/auth"
	"github.com/aydrian/tabnine-charity-activations/internal/config"
	cronrunner "github.com/aydrian/tabnine-charity-activations/internal/cron"
	"github.com/aydrian/tabnine-charity-activations/internal/db"
	"github.com/aydrian/tabnine-charity-activations/internal/feed"
	"github.com/aydrian/tabnine-charity-activations/internal/handler"
	"github.com/aydrian/tabnine-charity-activations/internal/logger"
	gormrepository "github.com/aydrian/tabnine-charity-activations/internal/repository/gorm"
	"github.com/aydrian/tabnine-charity-activations/internal/service"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"

	_ "github.com/aydrian/tabnine-charity-activations/docs"
)

func main() {
	cfgPath := os.Getenv("CA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CA_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
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

	feedSource := strings.ToLower(strings.TrimSpace(cfg.Feed.Source))
	if feedSource == "" {
		feedSource = "pgnotify"
	}
	if feedSource == "pgnotify" {
		if err := db.InstallDonationNotify(dbConn, cfg.Feed.Channel); err != nil {
			logger.Fatal("install donation notify trigger failed", zap.Error(err))
		}
	}

	store := gormrepository.New(dbConn.Gorm)
	registry := stream.NewRegistry(cfg.Stream.SubscriberBuffer, logger)
	tally := &service.TallyService{Repo: store}

	var (
		bus    *feed.Bus
		source feed.ChangeSource
	)
	switch feedSource {
	case "pgnotify":
		source = feed.NewPGNotifySource(feed.PGNotifyOptions{
			DSN:        cfg.DB.DSN,
			Channel:    cfg.Feed.Channel,
			BackoffMin: cfg.Feed.BackoffMin,
			BackoffMax: cfg.Feed.BackoffMax,
			Logger:     logger,
		})
	case "webhook", "bus":
		bus = feed.NewBus(0)
		source = bus
	default:
		logger.Fatal("unknown feed source", zap.String("source", feedSource))
	}

	donationSvc := &service.DonationService{Repo: store, Logger: logger}
	if feedSource == "bus" {
		donationSvc.Bus = bus
	}
	dashboardSvc := &service.DashboardService{
		Repo:       store,
		Tally:      tally,
		BaseURL:    cfg.App.BaseURL,
		QRCodeSize: cfg.Dashboard.QRCodeSize,
	}
	confirmationSvc := &service.ConfirmationService{Repo: store}
	adminSvc := &service.AdminService{
		Repo:                 store,
		MaxCharitiesPerEvent: cfg.Donation.MaxCharitiesPerEvent,
	}
	adminUser, err := adminSvc.EnsureAdminUser(context.Background(), cfg.Admin.Email)
	if err != nil {
		logger.Fatal("ensure admin user failed", zap.Error(err))
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)

	publicHandler := &handler.PublicHandler{
		Donations:     donationSvc,
		Dashboards:    dashboardSvc,
		Confirmations: confirmationSvc,
		Logger:        logger,
	}
	publicHandler.Register(engine)

	streamHandler := &handler.StreamHandler{
		Registry:          registry,
		Tally:             tally,
		Logger:            logger,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		QueryTimeout:      cfg.Feed.QueryTimeout,
	}
	streamHandler.Register(engine)

	if feedSource == "webhook" {
		cdcHandler := &handler.CDCHandler{Bus: bus, Logger: logger}
		cdcHandler.Register(engine)
	}

	adminHandler := &handler.AdminHandler{
		Admin: adminSvc,
		Repo:  store,
		JWT: auth.JWT{
			Secret:   []byte(cfg.Admin.JWTSecret),
			TokenTTL: cfg.Admin.TokenTTL,
		},
		AccessKey:   cfg.Admin.AccessKey,
		AdminUserID: adminUser.ID,
		Logger:      logger,
	}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener := &feed.Listener{
		Source:   source,
		Repo:     store,
		Tally:    tally,
		Registry: registry,
		Logger:   logger,
		Opts: feed.ListenerOptions{
			SourceName:   feedSource,
			QueryTimeout: cfg.Feed.QueryTimeout,
			RetryMax:     cfg.Feed.RetryMax,
			BackoffMin:   cfg.Feed.BackoffMin,
			BackoffMax:   cfg.Feed.BackoffMax,
		},
	}
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("change feed listener stopped", zap.Error(err))
		}
	}()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err := cronRunner.Add(cfg.Cron.Reconcile, func(ctx context.Context) {
			listener.Reconcile(ctx)
		})
		if err != nil {
			logger.Warn("cron register reconcile failed", zap.Error(err))
		}
		_, err = cronRunner.Add("@every 5m", func(ctx context.Context) {
			registry.LogStats()
		})
		if err != nil {
			logger.Warn("cron register stream stats failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
