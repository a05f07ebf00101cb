package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openexam/exam-service/internal/cache"
	"github.com/openexam/exam-service/internal/config"
	"github.com/openexam/exam-service/internal/handlers"
	"github.com/openexam/exam-service/internal/lti"
	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories/postgres"
	"github.com/openexam/exam-service/internal/services"
	"github.com/openexam/exam-service/internal/utils"
	"github.com/openexam/exam-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.ExamUser{},
		&models.StudentResponse{},
	); err != nil {
		logger.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}

	var cacheService cache.CacheService = cache.NoopCache{}
	if redisClient, err := pkg.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, question cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, logger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.Error("Event publisher setup failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	validator := utils.NewValidator()

	outcomeClient := lti.NewClient(lti.ClientConfig{
		ConsumerKey:    cfg.LTIConsumerKey,
		ConsumerSecret: cfg.LTIConsumerSecret,
	})

	examService := services.NewExamService(repo, logger, validator)
	questionService := services.NewQuestionService(repo, cacheService, logger, validator)
	responseService := services.NewResponseService(repo, logger, validator)
	gradeService := services.NewGradeService(repo, outcomeClient, publisher, logger, validator, cfg.PassbackConcurrency)
	exportService := services.NewExportService(repo, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		examService,
		questionService,
		responseService,
		gradeService,
		exportService,
		[]byte(cfg.SessionSecret),
		logger,
	)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
