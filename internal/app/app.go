package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nextrole_backend/internal/config"
	"nextrole_backend/internal/controller"
	"nextrole_backend/internal/repository"
	"nextrole_backend/internal/service"
	"nextrole_backend/pkg/configwatcher"
	"nextrole_backend/pkg/database"
	"nextrole_backend/pkg/logger"
	"nextrole_backend/pkg/monitoring"
	"nextrole_backend/pkg/security"
	"nextrole_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user   *repository.UserRepository
	course *repository.CourseRepository
}

type services struct {
	auth       *service.AuthService
	agent      *service.CourseAgentService
	skillGap   *service.SkillGapService
	video      *service.VideoService
	archive    *service.ArchiveService
	generation *service.GenerationClient
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	skillGap *controller.SkillGapController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:   repository.NewUserRepository(db),
		course: repository.NewCourseRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	generator := service.NewGenAIService(cfg.AI)
	client := service.NewGenerationClient(generator, cfg.Generation.MaxAttempts)

	return &services{
		auth:       service.NewAuthService(repos.user, cfg),
		agent:      service.NewCourseAgentService(client, repos.course, repos.user, cfg.Generation.ModuleConcurrency),
		skillGap:   service.NewSkillGapService(client),
		video:      service.NewVideoService(cfg.YouTube.APIKey, cfg.YouTube.BaseURL, rdb, repos.course),
		archive:    service.NewArchiveService(cfg),
		generation: client,
	}
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		course:   controller.NewCourseController(s.agent, s.video, s.archive, repos.course),
		skillGap: controller.NewSkillGapController(s.skillGap),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需显式 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// redis 仅用于视频结果缓存，缺失时降级运行
		logger.Log.Warn("Redis unavailable, video cache disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, repos, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("nextrole-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/archives", cfg.Storage.LocalPath)
	}

	// 配置热加载：只有生成参数可以运行时安全变更，其余字段需重启生效
	cfgFile := filepath.Join("configs", "config.yaml")
	if err := configwatcher.Watch(cfgFile, func(newCfg *config.Config) {
		services.generation.SetMaxAttempts(newCfg.Generation.MaxAttempts)
		services.agent.SetConcurrency(newCfg.Generation.ModuleConcurrency)
		logger.Log.Info("generation settings reloaded",
			zap.Int("maxAttempts", newCfg.Generation.MaxAttempts),
			zap.Int("moduleConcurrency", newCfg.Generation.ModuleConcurrency),
		)
	}); err != nil {
		logger.Log.Warn("config hot reload disabled", zap.Error(err))
	}

	return app
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
