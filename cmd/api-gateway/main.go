package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-adp-api/api/swagger"
	internalhandler "github.com/noah-isme/sma-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-api/internal/middleware"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/internal/solver"
	"github.com/noah-isme/sma-adp-api/pkg/cache"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/database"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/requestid"
)

// @title SMA ADP API
// @version 0.1.0
// @description Constraint-based timetable scheduler
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	authRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(authRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-adp-api",
		Audience:           []string{"sma-adp-clients"},
	})
	authHandler := internalhandler.NewAuthHandler(authSvc)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)
	protectedAuth := authRoutes.Group("")
	protectedAuth.Use(internalmiddleware.JWT(authSvc))
	protectedAuth.POST("/logout", authHandler.Logout)
	protectedAuth.POST("/change-password", authHandler.ChangePassword)

	classRepo := repository.NewClassRepository(db)
	termRepo := repository.NewTermRepository(db)
	semesterScheduleRepo := repository.NewSemesterScheduleRepository(db)
	semesterSlotRepo := repository.NewSemesterScheduleSlotRepository(db)
	lessonRepo := repository.NewLessonRepository(db)

	var redisClient *redis.Client
	if cfg.Scheduler.Enabled {
		if client, err := cache.NewRedis(cfg.Redis); err != nil {
			logr.Sugar().Warnw("redis disabled, proposal cache will not survive a restart", "error", err)
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	var schedulerHandler *internalhandler.ScheduleGeneratorHandler
	if cfg.Scheduler.Enabled {
		schedulerSvc := service.NewScheduleGeneratorService(
			termRepo,
			classRepo,
			lessonRepo,
			semesterScheduleRepo,
			semesterSlotRepo,
			db,
			nil,
			logr,
			service.ScheduleGeneratorConfig{
				ProposalTTL: cfg.Scheduler.ProposalTTL,
				Redis:       redisClient,
				Metrics:     metricsSvc,
				Defaults: service.SchedulerDefaults{
					Options: solver.Options{
						MaxIterations:          cfg.Scheduler.MaxIterations,
						DailyLimit:             cfg.Scheduler.DailyLimit,
						WeeklyLimit:            cfg.Scheduler.WeeklyLimit,
						Weights:                solver.DefaultWeights(),
						CoolingRate:            cfg.Scheduler.CoolingRate,
						ReheatTemperature:      cfg.Scheduler.ReheatTemperature,
						StagnationThreshold:    cfg.Scheduler.StagnationThreshold,
						ShuffleThreshold:       cfg.Scheduler.ShuffleThreshold,
						ChainSearchLimit:       cfg.Scheduler.ChainSearchLimit,
						PriorityKeywords:       solver.DefaultPriorityKeywords,
						Seed:                   1,
						ProgressEvery:          100_000,
						RevertOnReject:         cfg.Scheduler.RevertOnReject,
						UseFullPenaltyAsEnergy: cfg.Scheduler.UseFullPenaltyAsEnergy,
					},
				},
			},
		)
		schedulerWorker := service.NewSchedulerWorker(schedulerSvc)
		schedulerWorkers := cfg.Scheduler.AsyncWorkers
		if schedulerWorkers <= 0 {
			schedulerWorkers = 1
		}
		schedulerQueueCfg := jobs.QueueConfig{
			Workers:    schedulerWorkers,
			BufferSize: schedulerWorkers * 4,
			MaxRetries: cfg.Scheduler.AsyncMaxRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		}
		schedulerQueueCtx, schedulerQueueCancel := context.WithCancel(context.Background())
		schedulerQueue := jobs.NewQueue("scheduler", schedulerWorker.Handle, schedulerQueueCfg)
		schedulerQueue.Start(schedulerQueueCtx)
		defer func() {
			schedulerQueueCancel()
			schedulerQueue.Stop()
		}()
		schedulerSvc.SetJobDispatcher(schedulerQueue)

		schedulerHandler = internalhandler.NewScheduleGeneratorHandler(schedulerSvc)
	}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	if schedulerHandler != nil {
		schedulerGroup := secured.Group("")
		schedulerGroup.POST("/schedule/generate", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.Generate)
		schedulerGroup.POST("/schedules/generator", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.GenerateAlias)
		schedulerGroup.POST("/schedule/save", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.Save)
		schedulerGroup.GET("/semester-schedule", internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.List)
		schedulerGroup.GET("/semester-schedule/:id/slots", internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.Slots)
		schedulerGroup.DELETE("/semester-schedule/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), schedulerHandler.Delete)
		schedulerGroup.POST("/schedule/jobs/:id/apply-swap", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.ApplySwap)
		schedulerGroup.POST("/schedule/jobs", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.CreateJob)
		schedulerGroup.GET("/schedule/jobs/:id", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.JobStatus)
		schedulerGroup.GET("/schedule/export/csv", internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.ExportCSV)
		schedulerGroup.GET("/schedule/export/pdf", internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin)), schedulerHandler.ExportPDF)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
