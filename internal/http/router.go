package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ossideas/internal/backend"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	tokens *backend.TokenService,
	authH *AuthHandler,
	ideaH *IdeaHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/verify", authH.VerifyEmail)
	auth.POST("/logout", authH.Logout)
	auth.GET("/me", authH.Me)
	auth.GET("/google", authH.GoogleStart)
	auth.GET("/callback", authH.GoogleCallback)

	onboarding := r.Group("/onboarding", SessionAuthMiddleware(tokens))
	onboarding.POST("/complete", authH.CompleteOnboarding)

	ideas := r.Group("/ideas")
	ideas.GET("", ideaH.List)
	ideas.GET("/:id", ideaH.Get)
	ideas.GET("/:id/related", ideaH.Related)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
