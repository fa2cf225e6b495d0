package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aegis-id/aegis/service"
)

// SetupRouter sets up the Gin router. registry may be nil to skip the
// /metrics endpoint.
func SetupRouter(engine *service.AuthService, registry *prometheus.Registry) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(engine)

	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/challenge/verify", handlers.ChallengeVerify)
		auth.GET("/session", handlers.Session)
	}

	router.GET("/stats", handlers.Stats)

	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(engine))
	{
		api.POST("/encrypt", handlers.Encrypt)
		api.POST("/decrypt", handlers.Decrypt)
	}

	return router
}
