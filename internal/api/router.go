package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brokenweave/internal/session"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/otel"
	"brokenweave/pkg/rbac"
	"brokenweave/pkg/trace"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handlers struct {
	Auth          *AuthHandler
	Missing       *MissingHandler
	Forms         *FormHandler
	Admin         *AdminHandler
	Notifications *NotificationHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, sessions SessionResolver, tracker *session.Tracker, ready map[string]Pinger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), trace.GinMiddleware(), otel.GinMiddleware(), metrics.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, p := range ready {
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metrics.Handler())

	// Public
	r.POST("/auth/register", h.Auth.Register)
	r.POST("/auth/login", h.Auth.Login)
	r.POST("/auth/guest", h.Auth.Guest)
	r.GET("/stories", h.Forms.Stories)

	// Any live session, guests included
	auth := r.Group("/")
	auth.Use(SessionMiddleware(sessions, tracker))
	{
		auth.POST("/auth/logout", h.Auth.Logout)
		auth.GET("/me", h.Auth.Me)
		auth.GET("/missing", h.Missing.List)
		auth.POST("/missing/search", h.Missing.Search)
		auth.GET("/missing/search", h.Missing.Page)
		auth.GET("/missing/:id", h.Missing.Get)
	}

	auth.POST("/donations", RequirePermission(rbac.PermissionDonate), h.Forms.Donate)
	auth.POST("/volunteers", RequirePermission(rbac.PermissionVolunteer), h.Forms.Volunteer)
	auth.POST("/missing", RequirePermission(rbac.PermissionReport), h.Missing.Create)

	admin := auth.Group("/admin")
	admin.Use(RequirePermission(rbac.PermissionAdmin))
	{
		admin.GET("/users", h.Admin.Users)
		admin.POST("/users/:id/toggle-admin", h.Admin.ToggleAdmin)
		admin.GET("/reports", h.Admin.Reports)
		admin.PATCH("/reports/:id/state", h.Admin.UpdateReportState)
		admin.GET("/volunteers", h.Admin.Volunteers)
		admin.GET("/donations", h.Admin.Donations)
		admin.GET("/stories", h.Admin.Stories)
		admin.POST("/stories", h.Admin.CreateStory)
		admin.PUT("/stories/:id", h.Admin.UpdateStory)
		admin.DELETE("/stories/:id", h.Admin.DeleteStory)
		admin.GET("/settings", h.Admin.Settings)
		admin.PUT("/settings", h.Admin.UpdateSettings)

		admin.GET("/notifications", h.Notifications.Snapshot)
		admin.POST("/notifications/:id/read", h.Notifications.MarkRead)
		admin.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		admin.POST("/notifications/open", h.Notifications.Open)
		admin.POST("/notifications/close", h.Notifications.Close)
		admin.GET("/notifications/stream", h.Notifications.Stream)

		admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
