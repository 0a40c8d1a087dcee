package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/auth"
	"github.com/atelierhq/atelier/internal/authz"
	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/handlers"
	"github.com/atelierhq/atelier/internal/middleware"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/realtime"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format, "atelier-server")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	connectCancel()
	if err != nil {
		logger.Fatal("connect to mongodb", zap.Error(err))
	}
	defer db.Close(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal("ensure indexes", zap.Error(err))
	}

	// Realtime publisher (no-op when Redis is not configured)
	var publisher *realtime.Publisher
	if cfg.Redis.Enabled {
		rc := realtime.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		publisher = realtime.NewPublisher(rc, logger)
		if err := publisher.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, live events degraded", zap.Error(err))
		}
		defer publisher.Close()
	} else {
		publisher = realtime.NewPublisher(nil, logger)
	}

	// Object storage (disabled when not configured)
	store, err := storage.NewClient(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("storage client", zap.Error(err))
	}
	if !store.Enabled() {
		logger.Info("object storage not configured, file endpoints disabled")
	}

	// Permission table
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logger.Fatal("authz enforcer", zap.Error(err))
	}

	// Services
	ob := outbox.New(db, logger)
	authService := auth.NewAuth(db)
	userService := services.NewUserService(db)
	projectService := services.NewProjectService(db, ob, store, logger)
	scheduleService := services.NewScheduleService(db, projectService, ob)
	taskService := services.NewTaskService(db, ob)
	milestoneService := services.NewMilestoneService(db, taskService, ob)
	riskService := services.NewRiskService(db, taskService)
	messageService := services.NewMessageService(db, ob)
	notificationService := services.NewNotificationService(db, ob)
	calendarService := services.NewCalendarService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(userService, logger)
	projectHandler := handlers.NewProjectHandler(projectService, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, logger)
	taskHandler := handlers.NewTaskHandler(taskService, logger)
	milestoneHandler := handlers.NewMilestoneHandler(milestoneService, logger)
	riskHandler := handlers.NewRiskHandler(riskService, logger)
	messageHandler := handlers.NewMessageHandler(messageService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	calendarHandler := handlers.NewCalendarHandler(calendarService, logger)
	fileHandler := handlers.NewFileHandler(projectService, store, logger)

	// Outbox dispatcher
	dispatcher := outbox.NewDispatcher(db, publisher, logger, 2*time.Second)
	go dispatcher.Run(ctx)

	// Hourly expired-session sweep
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanupExpiredSessions(ctx); err != nil {
					logger.Warn("cleanup expired sessions", zap.Error(err))
				}
			}
		}
	}()

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.HTTP.CORSOrigin))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", middleware.AuthRateLimitMiddleware(), authHandler.Login)
	authProtected := authRoutes.Group("")
	authProtected.Use(middleware.AuthMiddleware(authService))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.GET("/me", authHandler.Me)
	authProtected.PUT("/password", authHandler.ChangePassword)

	// Everything below requires a session plus a permission-table grant.
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	can := func(resource, action string) gin.HandlerFunc {
		return middleware.Authorize(enforcer, logger, resource, action)
	}

	// Projects
	protected.GET("/projects", can(authz.ResourceProject, authz.ActionList), projectHandler.List)
	protected.POST("/projects", can(authz.ResourceProject, authz.ActionCreate), projectHandler.Create)
	protected.GET("/projects/:id", can(authz.ResourceProject, authz.ActionRead), projectHandler.Get)
	protected.PUT("/projects/:id", can(authz.ResourceProject, authz.ActionUpdate), projectHandler.Update)
	protected.PATCH("/projects/:id", can(authz.ResourceProject, authz.ActionUpdate), projectHandler.Update)
	protected.DELETE("/projects/:id", can(authz.ResourceProject, authz.ActionDelete), projectHandler.Delete)

	// Site schedule
	protected.GET("/projects/:id/schedule", can(authz.ResourceProject, authz.ActionRead), scheduleHandler.Get)
	protected.PUT("/projects/:id/schedule", can(authz.ResourceActivity, authz.ActionUpdate), scheduleHandler.Replace)
	protected.PUT("/projects/:id/schedule/activities/:activityId", can(authz.ResourceActivity, authz.ActionUpdate), scheduleHandler.UpdateActivity)
	protected.PATCH("/projects/:id/schedule/activities/:activityId", can(authz.ResourceActivity, authz.ActionUpdate), scheduleHandler.UpdateActivity)
	protected.POST("/projects/:id/schedule/activities/:activityId/comments", can(authz.ResourceActivity, authz.ActionRead), scheduleHandler.AddActivityComment)
	protected.DELETE("/projects/:id/schedule/activities/:activityId", can(authz.ResourceActivity, authz.ActionDelete), scheduleHandler.DeleteActivity)

	// Files
	protected.POST("/projects/:id/files", can(authz.ResourceFile, authz.ActionCreate), fileHandler.Upload)
	protected.GET("/projects/:id/files/*key", can(authz.ResourceFile, authz.ActionRead), fileHandler.Download)
	protected.DELETE("/projects/:id/files/*key", can(authz.ResourceFile, authz.ActionDelete), fileHandler.Delete)

	// Tasks
	protected.GET("/tasks", can(authz.ResourceTask, authz.ActionList), taskHandler.List)
	protected.POST("/tasks", can(authz.ResourceTask, authz.ActionCreate), taskHandler.Create)
	protected.GET("/tasks/:id", can(authz.ResourceTask, authz.ActionRead), taskHandler.Get)
	protected.PUT("/tasks/:id", can(authz.ResourceTask, authz.ActionUpdate), taskHandler.Update)
	protected.PATCH("/tasks/:id", can(authz.ResourceTask, authz.ActionUpdate), taskHandler.Update)
	protected.POST("/tasks/:id/comments", can(authz.ResourceTask, authz.ActionRead), taskHandler.AddComment)

	// Milestones
	protected.GET("/milestones", can(authz.ResourceMilestone, authz.ActionList), milestoneHandler.List)
	protected.POST("/milestones", can(authz.ResourceMilestone, authz.ActionCreate), milestoneHandler.Create)
	protected.PUT("/milestones/:id", can(authz.ResourceMilestone, authz.ActionUpdate), milestoneHandler.Update)
	protected.PATCH("/milestones/:id", can(authz.ResourceMilestone, authz.ActionUpdate), milestoneHandler.Update)

	// Risks
	protected.GET("/risks", can(authz.ResourceRisk, authz.ActionList), riskHandler.List)
	protected.POST("/risks", can(authz.ResourceRisk, authz.ActionCreate), riskHandler.Create)
	protected.PUT("/risks/:id", can(authz.ResourceRisk, authz.ActionUpdate), riskHandler.Update)
	protected.PATCH("/risks/:id", can(authz.ResourceRisk, authz.ActionUpdate), riskHandler.Update)
	protected.DELETE("/risks/:id", can(authz.ResourceRisk, authz.ActionDelete), riskHandler.Delete)

	// Messaging
	protected.GET("/messages", can(authz.ResourceMessage, authz.ActionList), messageHandler.Conversations)
	protected.GET("/messages/with/:userId", can(authz.ResourceMessage, authz.ActionList), messageHandler.Thread)
	protected.POST("/messages", can(authz.ResourceMessage, authz.ActionCreate), messageHandler.Send)
	protected.PUT("/messages/:id/read", can(authz.ResourceMessage, authz.ActionUpdate), messageHandler.MarkRead)
	protected.DELETE("/messages/:id", can(authz.ResourceMessage, authz.ActionDelete), messageHandler.Delete)

	// Notifications
	protected.GET("/notifications", can(authz.ResourceNotification, authz.ActionList), notificationHandler.List)
	protected.POST("/notifications", can(authz.ResourceNotification, authz.ActionCreate), notificationHandler.Create)
	protected.PUT("/notifications/:id/read", can(authz.ResourceNotification, authz.ActionUpdate), notificationHandler.MarkRead)
	protected.PUT("/notifications/:id/unread", can(authz.ResourceNotification, authz.ActionUpdate), notificationHandler.MarkUnread)
	protected.PUT("/notifications/read-all", can(authz.ResourceNotification, authz.ActionUpdate), notificationHandler.MarkAllRead)
	protected.DELETE("/notifications/:id", can(authz.ResourceNotification, authz.ActionDelete), notificationHandler.Delete)

	// Calendar
	protected.GET("/calendar", can(authz.ResourceEvent, authz.ActionList), calendarHandler.List)
	protected.POST("/calendar", can(authz.ResourceEvent, authz.ActionCreate), calendarHandler.Create)

	// Users
	protected.GET("/users", can(authz.ResourceUser, authz.ActionList), userHandler.List)
	protected.POST("/users", can(authz.ResourceUser, authz.ActionCreate), userHandler.Create)
	protected.GET("/users/:id", can(authz.ResourceUser, authz.ActionRead), userHandler.Get)
	protected.PUT("/users/:id", can(authz.ResourceUser, authz.ActionUpdate), userHandler.Update)
	protected.PATCH("/users/:id", can(authz.ResourceUser, authz.ActionUpdate), userHandler.Update)
	protected.PUT("/users/:id/active", can(authz.ResourceUser, authz.ActionDelete), userHandler.SetActive)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
