package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/formhive/formhive-api/api/swagger"
	"github.com/formhive/formhive-api/internal/handler"
	"github.com/formhive/formhive-api/internal/middleware"
	"github.com/formhive/formhive-api/internal/repository"
	"github.com/formhive/formhive-api/internal/service"
	"github.com/formhive/formhive-api/pkg/cache"
	"github.com/formhive/formhive-api/pkg/config"
	"github.com/formhive/formhive-api/pkg/database"
	"github.com/formhive/formhive-api/pkg/logger"
	corsmiddleware "github.com/formhive/formhive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/formhive/formhive-api/pkg/middleware/requestid"
)

// @title FormHive API
// @version 1.0.0
// @description Form building and submission admission service
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		logr.Sugar().Warnw("redis not configured, submission markers are cookie-only")
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	formRepo := repository.NewFormRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	activitySvc := service.NewActivityService(activityRepo, cfg.Activity.PageSize, logr)
	formSvc := service.NewFormService(formRepo, activitySvc, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, activitySvc, cfg.Submission.EditWindow, metrics, logr)
	markerSvc := service.NewMarkerService(rdb, cfg.Submission.MarkerSecret, cfg.Submission.MarkerTTL, logr)
	analyticsSvc := service.NewAnalyticsService(formRepo, submissionRepo, logr)

	intakeSvc := service.NewIntakeService(formRepo, submissionSvc, markerSvc, metrics, logr)
	sequencer := service.NewSequencer(intakeSvc, service.SequencerConfig{
		Delay:     cfg.Submission.ReviewDelay,
		Retention: cfg.Submission.EditWindow,
		Activity:  activitySvc,
		Metrics:   metrics,
		Logger:    logr,
	})
	intakeSvc.SetSequencer(sequencer)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	router := handler.Router{
		Forms:   handler.NewFormHandler(formSvc, activitySvc, submissionSvc, analyticsSvc),
		Public:  handler.NewPublicHandler(intakeSvc, formSvc, cfg.Submission),
		Metrics: handler.NewMetricsHandler(metrics, db, rdb),
	}
	router.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sequencer.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	sequencer.Stop()
}
