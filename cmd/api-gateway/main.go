package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/learnpath-api/api/swagger"
	"github.com/noah-isme/learnpath-api/internal/handler"
	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/repository"
	"github.com/noah-isme/learnpath-api/internal/schedule"
	"github.com/noah-isme/learnpath-api/internal/service"
	"github.com/noah-isme/learnpath-api/pkg/cache"
	"github.com/noah-isme/learnpath-api/pkg/config"
	"github.com/noah-isme/learnpath-api/pkg/database"
	"github.com/noah-isme/learnpath-api/pkg/jobs"
	"github.com/noah-isme/learnpath-api/pkg/logger"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/learnpath-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learnpath-api/pkg/middleware/requestid"
	"github.com/noah-isme/learnpath-api/pkg/storage"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

// @title LearnPath API
// @version 1.0.0
// @description Student accounts, live and recorded classes, learning paths and bulk imports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	archive, err := storage.NewLocalStorage(cfg.Imports.ArchiveDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare import archive", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	liveRepo := repository.NewClassRepository(db)
	recordedRepo := repository.NewRecordedClassRepository(db)
	pathRepo := repository.NewLearningPathRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	studentTokens := repository.NewTokenRepository(redisClient, "")
	adminTokens := repository.NewTokenRepository(redisClient, "ADMIN_")
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	mailSvc := service.NewMailService(nil, mailer.NewRenderer(), mailer.New(cfg.Mail, logr), metricsSvc, logr)
	mailRouter := jobs.NewRouter()
	mailRouter.Register(service.JobTypeMail, mailSvc.Handle)
	mailQueue := jobs.NewQueue("mail", mailRouter.Handle, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	mailSvc.SetQueue(mailQueue)
	mailQueue.Start(ctx)

	issuer := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
	})
	authCfg := service.AuthConfig{
		VerificationTTL: cfg.Verification.CodeTTL,
		ResendLimit:     cfg.Verification.ResendLimit,
		ResendWindow:    cfg.Verification.ResendWindow,
		VerifyURL:       cfg.AppBaseURL + cfg.Verification.URLPath,
		ResetTTL:        cfg.Reset.CodeTTL,
		ResetURL:        cfg.AppBaseURL + cfg.Reset.URLPath,
	}

	authSvc := service.NewAuthService(studentRepo, studentTokens, issuer, mailSvc, auditRepo, cacheSvc, validate, logr, authCfg)
	adminSvc := service.NewAdminService(adminRepo, adminTokens, issuer, mailSvc, auditRepo, cacheSvc, validate, logr, authCfg, cfg.AppBaseURL+"/admin/login")
	studentSvc := service.NewStudentService(studentRepo, archive, auditRepo, metricsSvc, cacheSvc, validate, logr)
	classSvc := service.NewClassService(liveRepo, recordedRepo, schedule.NewReconciler(loc, nil), cacheSvc, validate, logr)
	pathSvc := service.NewLearningPathService(pathRepo, archive, auditRepo, metricsSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL:      cfg.Dashboard.CacheTTL,
		UpcomingLimit: cfg.Dashboard.UpcomingMax,
		Location:      loc,
	})

	var exposed *service.MetricsService
	if cfg.Metrics.Enabled {
		exposed = metricsSvc
	}
	observability := handler.NewMetricsHandler(exposed, map[string]handler.Pinger{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Interval)
	go limiter.Run(ctx.Done())
	go cleanupArchive(ctx, archive, cfg.Imports, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterOperational(r, observability)
	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Admin:         handler.NewAdminHandler(adminSvc),
		Student:       handler.NewStudentHandler(studentSvc, cfg.Imports.MaxUploadBytes),
		Class:         handler.NewClassHandler(classSvc),
		LearningPath:  handler.NewLearningPathHandler(pathSvc, cfg.Imports.MaxUploadBytes),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Observability: observability,
	}, handler.RouteDeps{
		Tokens:      issuer,
		AuthLimiter: limiter,
		Audit:       auditRepo,
		Logger:      logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	mailQueue.Stop()
}

// cleanupArchive prunes archived uploads older than the configured TTL.
func cleanupArchive(ctx context.Context, archive *storage.LocalStorage, cfg config.ImportsConfig, logr *zap.Logger) {
	if cfg.ArchiveTTL <= 0 || cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := archive.CleanupOlderThan(cfg.ArchiveTTL)
			if err != nil {
				logr.Warn("archive cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("archive cleanup", zap.Int("removed", len(removed)))
			}
		}
	}
}
