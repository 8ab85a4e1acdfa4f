package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/studisys/docshare-api/api/swagger"
	"github.com/studisys/docshare-api/internal/handler"
	"github.com/studisys/docshare-api/internal/middleware"
	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/repository"
	"github.com/studisys/docshare-api/internal/service"
	"github.com/studisys/docshare-api/pkg/cache"
	"github.com/studisys/docshare-api/pkg/config"
	"github.com/studisys/docshare-api/pkg/database"
	"github.com/studisys/docshare-api/pkg/jobs"
	"github.com/studisys/docshare-api/pkg/logger"
	corsmiddleware "github.com/studisys/docshare-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studisys/docshare-api/pkg/middleware/requestid"
	"github.com/studisys/docshare-api/pkg/storage"
)

// @title DocShare API
// @version 0.1.0
// @description Course access requests and document distribution
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("failed to apply migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	requestRepo := repository.NewAccessRequestRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	approvalRepo := repository.NewApprovalRepository(db, grantRepo, assignmentRepo)
	distributionRepo := repository.NewDistributionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Background notification delivery. The handler is a logging sink until
	// a mail integration lands.
	notificationQueue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(service.Notification)
		if !ok {
			return fmt.Errorf("unexpected notification payload %T", job.Payload)
		}
		logr.Info("notification delivered",
			zap.String("recipient", n.RecipientID), zap.String("subject", n.Subject))
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		Logger:     logr,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()

	// Services.
	metricsSvc := service.NewMetricsService()
	dispatcher := service.NewQueueDispatcher(notificationQueue, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "docshare-api",
	})
	courseSvc := service.NewCourseService(courseRepo)
	grantSvc := service.NewGrantService(grantRepo, cacheRepo, cfg.Grants.CacheTTL, logr)
	distributionSvc := service.NewDistributionService(distributionRepo, courseRepo, store, metricsSvc, service.DistributionConfig{
		MaxAccessLogEntries: cfg.Distributions.MaxAccessLogEntries,
		IDSuffixLength:      cfg.Distributions.IDSuffixLength,
	}, nil, logr)
	requestSvc := service.NewAccessRequestService(requestRepo, approvalRepo, courseRepo, userRepo,
		distributionRepo, grantSvc, dispatcher, metricsSvc, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	requestHandler := handler.NewAccessRequestHandler(requestSvc)
	grantHandler := handler.NewGrantHandler(grantSvc)
	distributionHandler := handler.NewDistributionHandler(distributionSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)

		requests := authed.Group("/access-requests")
		{
			requests.POST("", middleware.RequireRoles(models.RoleTeacher), requestHandler.Create)
			requests.GET("/mine", middleware.RequireRoles(models.RoleTeacher), requestHandler.ListMine)
			requests.GET("/incoming", middleware.RequireRoles(models.RoleModuleLeader, models.RoleAdmin), requestHandler.ListIncoming)
			requests.POST("/:id/respond", middleware.RequireRoles(models.RoleModuleLeader), requestHandler.Respond)
		}

		authed.GET("/grants/accessible-courses", middleware.RequireRoles(models.RoleTeacher, models.RoleModuleLeader), grantHandler.ListAccessibleCourses)

		distributions := authed.Group("/distributions")
		{
			distributions.POST("", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.Create)
			distributions.GET("", distributionHandler.List)
			distributions.GET("/:id", distributionHandler.Get)
			distributions.POST("/:id/files", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.AddFiles)
			distributions.POST("/:id/files/upload", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.UploadFile)
			distributions.GET("/:id/files/:file_id", distributionHandler.DownloadFile)
			distributions.POST("/:id/share", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.Share)
			distributions.PATCH("/:id/status", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.UpdateStatus)
			distributions.PUT("/:id/permissions", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.UpdatePermissions)
			distributions.POST("/:id/access", distributionHandler.TrackAccess)
			distributions.GET("/:id/export/access-report", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.ExportAccessReport)
			distributions.GET("/:id/export/audit-trail", middleware.RequireRoles(models.RoleModuleLeader), distributionHandler.ExportAuditTrail)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
