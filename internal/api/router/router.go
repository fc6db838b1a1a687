package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/unoapi-commander/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SetupRouter configures and returns the Gin router with all routes.
// checks are keyed by the name reported in /health.
func SetupRouter(deps *handler.Dependencies, checks map[string]HealthChecker) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps.Logger, checks))

	sessionHandler := handler.NewSessionHandler(deps)

	v15 := r.Group("/v15.0")
	{
		// GET /v15.0/:phone - Session info, status and webhooks
		v15.GET("/:phone", sessionHandler.Info)

		// DELETE /v15.0/:phone - Disconnect and forget the session
		v15.DELETE("/:phone", sessionHandler.Delete)

		// PUT /v15.0/:phone/templates/:name - Override a template
		v15.PUT("/:phone/templates/:name", sessionHandler.SaveTemplate)

		// POST /v15.0/:phone/commands - Queue a payload for the commander
		v15.POST("/:phone/commands", sessionHandler.EnqueueCommand)
	}

	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := gin.H{}

		for name, check := range checks {
			if err := check.HealthCheck(c.Request.Context()); err != nil {
				logger.Warn("Health check failed",
					slog.String("dependency", name),
					slog.String("error", err.Error()),
				)
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "healthy"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":       overall,
			"service":      "unoapi-api-service",
			"dependencies": deps,
		})
	}
}
