package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/api/handlers"
	"github.com/orrn/printqueue/internal/api/middleware"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/logging"
	"github.com/orrn/printqueue/internal/storage"
)

type Deps struct {
	Auth     *middleware.AuthMiddleware
	Metrics  *middleware.Metrics
	Logger   *logging.Logger
	Notify   handlers.Notifiers
	Uploader storage.Uploader
	Tester   handlers.Tester
	Feed     http.Handler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := db.GetDB().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.GET("/status", d.Auth.StatusHandler)
	auth.POST("/setup", d.Auth.SetupHandler)
	auth.POST("/login", d.Auth.LoginHandler)
	auth.POST("/logout", d.Auth.LogoutHandler)

	authed := api.Group("", d.Auth.RequireAuth())
	authed.PUT("/auth/password", d.Auth.ChangePasswordHandler)
	if d.Feed != nil {
		authed.GET("/ws", gin.WrapH(d.Feed))
	}

	admin := authed.Group("", d.Auth.RequireAdmin())

	notify := d.Notify
	if notify.Images == nil && d.Uploader != nil {
		notify.Images = d.Uploader
	}

	handlers.NewJobHandler(notify).RegisterRoutes(authed, admin)
	handlers.NewPressHandler(notify).RegisterRoutes(authed, admin)
	handlers.NewColorHandler(notify).RegisterRoutes(authed, admin)
	handlers.NewSettingsHandler(notify).RegisterRoutes(authed, admin)
	handlers.NewUserHandler().RegisterRoutes(admin)
	handlers.NewUploadHandler(d.Uploader).RegisterRoutes(admin)
	if d.Tester != nil {
		handlers.NewWebhookHandler(d.Tester).RegisterRoutes(admin)
	}

	return r
}
