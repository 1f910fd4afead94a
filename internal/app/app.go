package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosco_escolar_backend/internal/config"
	"kiosco_escolar_backend/internal/controller"
	"kiosco_escolar_backend/internal/repository"
	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/pkg/database"
	"kiosco_escolar_backend/pkg/logger"
	"kiosco_escolar_backend/pkg/monitoring"
	"kiosco_escolar_backend/pkg/security"
	"kiosco_escolar_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	progress *repository.ProgressRepository
	quiz     *repository.QuizRepository
	chat     *repository.ChatRepository
	token    *repository.RefreshTokenRepository
}

type services struct {
	registry *service.RoomRegistry
	auth     *service.AuthService
	course   *service.CourseService
	progress *service.ProgressService
	quiz     *service.QuizService
	chat     *service.ChatService
	user     *service.UserService
	hub      *service.SocketHub
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	progress *controller.ProgressController
	quiz     *controller.QuizController
	chat     *controller.ChatController
	user     *controller.UserController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// OnConfigReload is invoked by the config watcher with the freshly parsed
// file. Only callback consumers pick up changes; server port and database
// settings need a restart.
func (a *App) OnConfigReload(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
		quiz:     repository.NewQuizRepository(db),
		chat:     repository.NewChatRepository(db),
		token:    repository.NewRefreshTokenRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.registry = service.NewRoomRegistry()
	s.auth = service.NewAuthService(repos.user, repos.token, rdb, cfg)
	s.progress = service.NewProgressService(repos.progress, repos.course)
	s.chat = service.NewChatService(repos.chat, s.registry)
	s.quiz = service.NewQuizService(repos.quiz, repos.course, s.progress)
	s.course = service.NewCourseService(repos.course, s.progress)

	s.hub = service.NewSocketHub(rdb, service.SocketDeps{
		Verifier:     s.auth,
		Registry:     s.registry,
		Chat:         s.chat,
		Progress:     s.progress,
		Students:     repos.user,
		HistoryLimit: cfg.Socket.HistoryLimit,
	}, cfg.Socket)
	go s.hub.Run()

	s.user = service.NewUserService(repos.user, repos.chat, s.hub)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		course:   controller.NewCourseController(s.course),
		progress: controller.NewProgressController(s.progress),
		quiz:     controller.NewQuizController(s.quiz),
		chat:     controller.NewChatController(s.chat, s.hub),
		user:     controller.NewUserController(s.user),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("kiosco-escolar", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

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

	// Close sockets first so clients see a clean goodbye and presence keys
	// are cleared before the process goes away.
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
