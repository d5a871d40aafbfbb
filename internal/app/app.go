package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prova_backend/internal/config"
	"prova_backend/internal/controller"
	"prova_backend/internal/repository"
	"prova_backend/internal/service"
	"prova_backend/pkg/database"
	"prova_backend/pkg/logger"
	"prova_backend/pkg/monitoring"
	"prova_backend/pkg/security"
	"prova_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	assessment  *repository.AssessmentRepository
	application *repository.ApplicationRepository
	submission  *repository.SubmissionRepository
	violation   *repository.ViolationRepository
}

type services struct {
	assessment  *service.AssessmentService
	application *service.ApplicationService
	submission  *service.SubmissionService
	violation   *service.ViolationService
	scheduler   *service.Scheduler
	monitorHub  *service.MonitorHub
}

type controllers struct {
	assessment  *controller.AssessmentController
	application *controller.ApplicationController
	submission  *controller.SubmissionController
	monitor     *controller.MonitorController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assessment:  repository.NewAssessmentRepository(db),
		application: repository.NewApplicationRepository(db),
		submission:  repository.NewSubmissionRepository(db),
		violation:   repository.NewViolationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.scheduler = service.NewScheduler()
	s.assessment = service.NewAssessmentService(repos.assessment)
	s.application = service.NewApplicationService(
		repos.application,
		repos.assessment,
		repos.submission,
		repos.violation,
		s.scheduler,
		db,
	)
	s.submission = service.NewSubmissionService(repos.submission, repos.application, repos.assessment, db)
	s.violation = service.NewViolationService(repos.violation, repos.submission, db, cfg.Proctoring)

	s.monitorHub = service.NewMonitorHub(rdb, s.submission, s.violation)
	go s.monitorHub.Run()

	// broadcasts are facts about committed state; the hub is attached after
	// construction because it consumes the same services it fans out for
	s.application.Broadcaster = s.monitorHub
	s.submission.Broadcaster = s.monitorHub
	s.violation.Broadcaster = s.monitorHub

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment:  controller.NewAssessmentController(s.assessment),
		application: controller.NewApplicationController(s.application),
		submission:  controller.NewSubmissionController(s.submission, s.violation),
		monitor:     controller.NewMonitorController(s.monitorHub, s.application, s.submission, cfg),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	router.Use(security.RateLimiter(maxRequests, cfg.RateLimit.RateWindow()))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// restore timers lost across restarts, then sweep for anything the
	// timers still miss
	if err := s.application.Rearm(); err != nil {
		logger.Log.Error("timer rearm error", zap.Error(err))
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			if err := s.application.FinishOverdue(); err != nil {
				logger.Log.Error("overdue sweep error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, cfg, db, rdb)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("exam-admin", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

// ReloadConfig applies hot-reloadable settings from a fresh config.
func (a *App) ReloadConfig(cfg *config.Config) {
	a.services.violation.ReloadRules(cfg.Proctoring)
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// stop firing transitions, then drop websocket clients
	if a.services != nil {
		if a.services.scheduler != nil {
			a.services.scheduler.Stop()
		}
		if a.services.monitorHub != nil {
			a.services.monitorHub.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
