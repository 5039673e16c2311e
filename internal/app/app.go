package app

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/controller"
	"aptitude_backend/internal/repository"
	"aptitude_backend/internal/seed"
	"aptitude_backend/internal/service"
	"aptitude_backend/pkg/configwatcher"
	"aptitude_backend/pkg/database"
	"aptitude_backend/pkg/logger"
	"aptitude_backend/pkg/monitoring"
	"aptitude_backend/pkg/security"
	"aptitude_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	cfgMu           sync.RWMutex
	configCallbacks []func(*config.Config)
	stop            chan struct{}
}

type repositories struct {
	student *repository.StudentRepository
	test    *repository.AptitudeTestRepository
	session *repository.TestSessionRepository
}

type services struct {
	guard   *service.SessionGuard
	auth    *service.AuthService
	test    *service.TestService
	session *service.SessionService
}

type controllers struct {
	auth     *controller.AuthController
	aptitude *controller.AptitudeController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 分发热更新后的配置
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfgMu.RLock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.cfgMu.RUnlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		student: repository.NewStudentRepository(db),
		test:    repository.NewAptitudeTestRepository(db),
		session: repository.NewTestSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}
	s.guard = service.NewSessionGuard(rdb)
	s.auth = service.NewAuthService(repos.student, s.guard, cfg)
	s.test = service.NewTestService(repos.test)
	s.session = service.NewSessionService(repos.test, repos.session, s.guard, cfg)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		aptitude: controller.NewAptitudeController(s.test, s.session),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())
	a.RegisterConfigCallback(func(c *config.Config) {
		a.limiter.Update(c.RateLimit.MaxRequests, time.Duration(c.RateLimit.WindowMinutes)*time.Minute)
	})

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时收卷超时会话、清理限流访客
func (a *App) startBackgroundTasks(s *services) {
	go a.limiter.Run(a.stop)

	go func() {
		interval := a.Config.Aptitude.SweepInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				n, err := s.session.SweepExpired(ctx)
				cancel()
				if err != nil {
					logger.Log.Error("sweep expired sessions error", zap.Error(err))
				} else if n > 0 {
					logger.Log.Info("expired sessions finalized", zap.Int("count", n))
				}
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		stop:   make(chan struct{}),
	}

	repos := app.initRepositories(db)

	if cfg.SeedFile != "" {
		n, err := seed.LoadFile(context.Background(), repos.test, cfg.SeedFile)
		if err != nil {
			logger.Log.Fatal("Failed to import seed file", zap.String("file", cfg.SeedFile), zap.Error(err))
		}
		logger.Log.Info("Seed file imported", zap.String("file", cfg.SeedFile), zap.Int("tests", n))
	}

	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("aptitude-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.ApplyMode(c.Server.Mode)
		services.session.UpdateAptitude(c.Aptitude)
	})

	app.registerRoutes(router, controllers, cfg)

	if !cfg.MigrateOnly {
		app.startBackgroundTasks(services)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}

// WatchConfig 监听配置目录变化并分发给已注册的回调，随后台任务一起停止
func (a *App) WatchConfig(configDir string) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-a.stop
		cancel()
	}()
	go func() {
		if err := configwatcher.WatchConfig(ctx, configDir, a.ApplyConfig); err != nil {
			logger.Log.Error("Failed to watch config", zap.String("dir", configDir), zap.Error(err))
		}
	}()
}

// Close 停止后台任务
func (a *App) Close() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
}
