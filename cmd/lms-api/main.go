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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/jobs"
	"github.com/noah-isme/lms-api/pkg/logger"
	"github.com/noah-isme/lms-api/pkg/scheduler"
	"github.com/noah-isme/lms-api/pkg/storage"
)

// @title LMS API
// @version 1.0.0
// @description Learning management backend: courses, enrollments, progress, gradebook.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	client, err := cache.NewRedis(cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("caching disabled")
	case err != nil:
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	default:
		redisRepo := repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	certificateFiles, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare certificate storage", zap.Error(err))
	}
	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	lessons := repository.NewLessonRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	discussions := repository.NewDiscussionRepository(db)
	certificates := repository.NewCertificateRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	audit := repository.NewAuditRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Gradebook.CacheTTL, logr, cacheRepo != nil)
	settingsSvc := service.NewSettingsService(settingsRepo, cacheSvc, audit, logr, service.SettingsServiceConfig{CacheTTL: cfg.Settings.CacheTTL})
	authSvc := service.NewAuthService(users, audit, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		RememberTokenExpiry: cfg.JWT.RememberExpiration,
		Issuer:              cfg.JWT.Issuer,
	})
	accessSvc := service.NewAccessService(users, courses, lessons, enrollments, metrics, logr)
	exportSvc := service.NewExportService(exportFiles, service.ExportConfig{ResultTTL: cfg.Exports.TTL}, logr, nil, nil, nil)
	gradebookSvc := service.NewGradebookService(courses, lessons, enrollments, submissions, cacheSvc, exportSvc, metrics, logr, service.GradebookServiceConfig{CacheTTL: cfg.Gradebook.CacheTTL})
	progressSvc := service.NewProgressService(lessons, submissions, enrollments, discussions, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, courses, gradebookSvc, audit, metrics, validate, logr)
	courseSvc := service.NewCourseService(courses, users, gradebookSvc, audit, validate, logr, service.CourseServiceConfig{DefaultAccessDays: cfg.Courses.DefaultAccessDays})
	lessonSvc := service.NewLessonService(lessons, courses, enrollments, gradebookSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(submissions, lessons, accessSvc, uploads, signer, gradebookSvc, audit, validate, logr, service.SubmissionServiceConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		DownloadPrefix:   cfg.APIPrefix + "/files",
	})
	communitySvc := service.NewCommunityService(discussions, lessons, progressSvc, validate, logr)
	userSvc := service.NewUserService(users, audit, validate, logr)

	worker := service.NewCertificateWorker(certificates, nil, certificateFiles, metrics, cfg.Certificates.WorkerRetries, logr)
	mux := jobs.NewMux()
	mux.Handle(service.JobTypeCertificateRender, worker.Handle)
	queue := jobs.NewQueue("background", mux.Process, jobs.QueueConfig{
		Workers:    cfg.Certificates.Workers,
		MaxRetries: cfg.Certificates.WorkerRetries,
		Logger:     logr.Named("jobs"),
	})
	certificateSvc := service.NewCertificateService(certificates, progressSvc, queue, certificateFiles, audit, metrics, logr)

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()
	queue.Start(rootCtx)
	certificateSvc.RecoverPending(rootCtx)

	cron := scheduler.New(logr.Named("scheduler"), 0)
	maintenance := service.NewMaintenanceService(exportSvc, enrollments, logr, service.MaintenanceConfig{
		ExportTTL:            cfg.Exports.TTL,
		CleanupSchedule:      cfg.Exports.CleanupSchedule,
		ExpiryReportSchedule: cfg.Exports.ExpiryReportSchedule,
	})
	if err := maintenance.Register(cron); err != nil {
		logr.Fatal("failed to register scheduled tasks", zap.Error(err))
	}
	cron.Start()

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
	}, handler.Dependencies{
		Tokens:       authSvc,
		Principals:   accessSvc,
		Gate:         accessSvc,
		Settings:     settingsSvc,
		Metrics:      metrics,
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		SettingsAPI:  handler.NewSettingsHandler(settingsSvc),
		Courses:      handler.NewCourseHandler(courseSvc, progressSvc),
		Lessons:      handler.NewLessonHandler(lessonSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		Gradebook:    handler.NewGradebookHandler(gradebookSvc),
		Submissions:  handler.NewSubmissionHandler(submissionSvc),
		Community:    handler.NewCommunityHandler(communitySvc),
		Certificates: handler.NewCertificateHandler(certificateSvc),
		Dashboard:    handler.NewDashboardHandler(progressSvc),
		Probes:       handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	cron.Stop(ctx)
	stopRoot()
	queue.Stop()
}
