package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/config"
	"github.com/lshigami/Symposium/database"
	_ "github.com/lshigami/Symposium/docs"
	"github.com/lshigami/Symposium/internal/auth"
	"github.com/lshigami/Symposium/internal/controller"
	adminctrl "github.com/lshigami/Symposium/internal/controller/admin"
	userctrl "github.com/lshigami/Symposium/internal/controller/user"
	"github.com/lshigami/Symposium/internal/logger"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/notify"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Symposium Proctored Exam API
// @version 1.0
// @description Events, rounds and proctored test attempts with gated results and leaderboards.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	logger.Init("info", false)

	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			repository.NewStore,
			NewGinEngine,
		),

		// Notifications, mail and metrics
		fx.Provide(
			notify.NewHub,
			func(h *notify.Hub) notify.Notifier { return h },
			notify.NewMailer,
			notify.NewDispatcher,
			func(d *notify.Dispatcher) service.MailDispatcher { return d },
			metrics.NewRegistry,
			func(reg *prometheus.Registry) *metrics.Metrics { return metrics.New(reg) },
			auth.NewTokenService,
		),

		fx.Provide(
			service.NewAttemptService,
			service.NewEventService,
			service.NewRoundService,
			service.NewQuestionService,
			service.NewGeminiLLMService,
			service.NewQuestionDraftService,
			service.NewScoreConverterService,
			service.NewLeaderboardService,
			service.NewExpirySweeper,
			func(rs service.RoundService) controller.StreamAuthorizer { return rs },
		),

		fx.Provide(
			controller.NewWebSocketController,
			userctrl.NewAttemptController,
			userctrl.NewEventController,
			adminctrl.NewEventController,
			adminctrl.NewRoundController,
			adminctrl.NewQuestionController,
		),

		fx.Invoke(ConfigureLogger),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(ManageBackground),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown finished with errors")
	}
}

func ConfigureLogger(cfg *config.Config) {
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
}

func AutoMigrateDB(db *gorm.DB) error {
	return database.AutoMigrate(db)
}

// ManageBackground ties the expiry sweeper, pending mail and the Gemini
// client to the application lifecycle.
func ManageBackground(lc fx.Lifecycle, sweeper *service.ExpirySweeper, dispatcher *notify.Dispatcher, llm service.GeminiLLMService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sweeper.Start()
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			dispatcher.Wait()
			return llm.Close()
		},
	})
}

func NewGinEngine(cfg *config.Config, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	// http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// gin-contrib/cors rejects a wildcard origin combined with credentials.
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	tokens *auth.TokenService,
	wsCtrl *controller.WebSocketController,
	attemptCtrl *userctrl.AttemptController,
	eventCtrl *userctrl.EventController,
	adminEventCtrl *adminctrl.EventController,
	adminRoundCtrl *adminctrl.RoundController,
	adminQuestionCtrl *adminctrl.QuestionController,
) {
	apiV1 := router.Group("/api/v1", auth.Middleware(tokens))
	{
		wsCtrl.RegisterRoutes(apiV1)
		attemptCtrl.RegisterRoutes(apiV1)
		eventCtrl.RegisterRoutes(apiV1)
	}

	adminGroup := apiV1.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	{
		adminEventCtrl.RegisterRoutes(adminGroup)
		adminRoundCtrl.RegisterRoutes(adminGroup)
		adminQuestionCtrl.RegisterRoutes(adminGroup)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Symposium API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
