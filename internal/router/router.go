package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/handler"
	"github.com/stemsi/tryout-backend/internal/i18n"
	"github.com/stemsi/tryout-backend/internal/middleware"
	"github.com/stemsi/tryout-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// answerLimiter may be nil to disable per-user write throttling.
func SetupRouter(
	tokens middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	answerLimiter *middleware.RateLimiter,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept-Language", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so every later log line and envelope carries it.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(i18n.Middleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Session API (any authenticated role) ───────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireIdentity(tokens), middleware.NoStore())
	{
		api.POST("/packages/:package_id/subtests/:subtest_id/sessions", handlers.Quiz.StartSession)
		api.GET("/subtests/:subtest_id/questions", handlers.Quiz.GetQuestionsBySubtest)

		sessions := api.Group("/sessions/:session_id")
		{
			sessions.GET("", handlers.Quiz.GetSessionDetails)
			sessions.GET("/result", handlers.Quiz.GetSessionResult)
			sessions.POST("/submit", handlers.Quiz.Submit)

			if answerLimiter != nil {
				sessions.POST("/answers", answerLimiter.Middleware(), handlers.Quiz.SaveAnswer)
			} else {
				sessions.POST("/answers", handlers.Quiz.SaveAnswer)
			}
		}

		// ─── 2. Monitoring (admin / teacher) ───────────────────────────
		admin := api.Group("/admin")
		admin.Use(middleware.RequirePrivileged())
		{
			admin.GET("/packages/:package_id/progress", handlers.Monitor.Snapshot)
			admin.GET("/packages/:package_id/monitor", handlers.Monitor.MonitorPackageSSE)
		}
	}

	// ─── 3. WebSocket ──────────────────────────────────────────────────
	// Browsers cannot set headers on the upgrade request; RequireIdentity
	// also accepts ?token=.
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireIdentity(tokens))
	{
		wsGroup.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
