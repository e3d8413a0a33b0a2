package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts every endpoint on router.
func RegisterRoutes(router gin.IRouter, handlers *Handlers) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/altcha/challenge", handlers.AltchaChallenge)
	api.POST("/submit-lead", handlers.SubmitLead)
	api.GET("/submit-lead", handlers.MethodNotAllowed)
	api.GET("/local-dossiers/:file", handlers.LocalDossier)
}
