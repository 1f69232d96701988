package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studygen_backend/internal/config"
	"studygen_backend/internal/controller"
	"studygen_backend/internal/middleware"
	"studygen_backend/internal/repository"
	"studygen_backend/internal/service"
	"studygen_backend/pkg/configwatcher"
	"studygen_backend/pkg/database"
	"studygen_backend/pkg/logger"
	"studygen_backend/pkg/monitoring"
	"studygen_backend/pkg/security"
	"studygen_backend/pkg/tracing"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user       *repository.UserRepository
	module     *repository.ModuleRepository
	material   *repository.MaterialRepository
	quiz       *repository.QuizRepository
	quizCache  *repository.QuizCacheRepository
	generation *repository.GenerationRepository
}

type services struct {
	auth       *service.AuthService
	technique  *service.TechniqueService
	ai         *service.AIService
	content    *service.ContentService
	parser     *service.ResponseParser
	preference *service.PreferenceService
	generation *service.GenerationService
}

type controllers struct {
	auth   *controller.AuthController
	module *controller.ModuleController
	quiz   *controller.QuizController
	health *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		module:     repository.NewModuleRepository(db),
		material:   repository.NewMaterialRepository(db),
		quiz:       repository.NewQuizRepository(db),
		quizCache:  repository.NewQuizCacheRepository(db),
		generation: repository.NewGenerationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.technique = service.NewTechniqueService()
	s.ai = service.NewAIService(cfg)
	s.content = service.NewContentService(repos.material, cfg)
	s.parser = service.NewResponseParser()
	s.preference = service.NewPreferenceService(rdb)
	s.generation = service.NewGenerationService(
		s.technique,
		s.ai,
		s.content,
		s.parser,
		repos.quizCache,
		repos.quiz,
		repos.generation,
		s.preference,
		cfg,
	)

	return s
}

func (a *App) initControllers(s *services, repos *repositories) *controllers {
	return &controllers{
		auth:   controller.NewAuthController(s.auth),
		module: controller.NewModuleController(repos.module, repos.material),
		quiz:   controller.NewQuizController(s.generation, s.technique, repos.quiz, repos.quizCache),
		health: controller.NewHealthController(),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the hourly cache sweep. Expired entries are
// already invisible to lookups; the sweep just reclaims rows.
func (a *App) startBackgroundTasks(repos *repositories) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		for range ticker.C {
			purged, err := repos.quizCache.PurgeExpired(24 * time.Hour)
			if err != nil {
				logger.Log.Error("cache sweep failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				logger.Log.Info("cache sweep", zap.Int64("purged", purged))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

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
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("studygen-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(repos)
	app.startConfigWatcher()

	return app
}

// startConfigWatcher hot-reloads tunables that are safe to change while
// requests are in flight.
func (a *App) startConfigWatcher() {
	go configwatcher.WatchConfig("configs/config.yaml", func(cfg *config.Config) {
		a.Config = cfg
		a.services.generation.SetCacheTTL(time.Duration(cfg.Generation.CacheTTLHours) * time.Hour)
		logger.Log.Info("configuration reloaded",
			zap.Int("cacheTTLHours", cfg.Generation.CacheTTLHours))
	})
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
