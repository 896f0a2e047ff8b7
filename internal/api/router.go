// Package api exposes the task, auth and analytics services over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Tasks     *TaskHandler
	Analytics *AnalyticsHandler
	Health    *HealthHandler
	// RequireAuth guards every non-public route.
	RequireAuth gin.HandlerFunc
}

// Options tune the middleware stack.
type Options struct {
	ClientURLs   []string
	QueryTimeout time.Duration
	// Quiet drops the request logger, for tests.
	Quiet bool
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	if !opts.Quiet {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if len(opts.ClientURLs) > 0 {
		r.Use(CORS(opts.ClientURLs))
	}
	r.Use(ErrorHandler())

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(&requestError{
			status:  http.StatusNotFound,
			code:    "ROUTE_NOT_FOUND",
			message: "Route not found: " + c.Request.URL.Path,
		})
	})

	api := r.Group("/api", QueryTimeout(opts.QueryTimeout))
	api.GET("/health", h.Health.Health)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password/:token", h.Auth.ResetPassword)
	auth.GET("/me", h.RequireAuth, h.Auth.Me)
	auth.PATCH("/preferences", h.RequireAuth, h.Auth.UpdatePreferences)

	tasks := api.Group("/tasks", h.RequireAuth)
	tasks.POST("", h.Tasks.Create)
	tasks.GET("", h.Tasks.List)
	tasks.POST("/parse", h.Tasks.Parse)
	tasks.GET("/categories", h.Tasks.Categories)
	tasks.DELETE("/completed", h.Tasks.DeleteCompleted)
	tasks.GET("/:id", h.Tasks.Get)
	tasks.PUT("/:id", h.Tasks.Update)
	tasks.PATCH("/:id/status", h.Tasks.UpdateStatus)
	tasks.DELETE("/:id", h.Tasks.Delete)

	analytics := api.Group("/analytics", h.RequireAuth)
	analytics.GET("/completion-stats", h.Analytics.CompletionStats)
	analytics.GET("/category-stats", h.Analytics.CategoryStats)
	analytics.GET("/productivity-trends", h.Analytics.ProductivityTrends)
	analytics.GET("/streaks", h.Analytics.Streaks)

	return r
}
