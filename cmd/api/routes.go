package main

import (
	"context"
	"net/http"

	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/auth"
	"hiring-pipeline/internal/httpapi"
	"hiring-pipeline/internal/rbac"
	"hiring-pipeline/internal/vendor"
	"hiring-pipeline/internal/workflow"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Auth          *auth.Manager
	Workflow      *workflow.Service
	Audit         *audit.Service
	WebhookSecret string
	// EnableLogin exposes the credential-less token endpoint. local/dev only.
	EnableLogin bool
	// Ready reports storage health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := httpapi.Handlers{Auth: d.Auth, Workflow: d.Workflow, Audit: d.Audit}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Vendor webhooks (public, shared-secret).
	{
		wh := vendor.WebhookHandler{Ingester: d.Workflow, Secret: d.WebhookSecret}
		r.POST("/webhooks/screening", wh.HandleScreeningEvent)
	}

	if d.EnableLogin {
		r.POST("/auth/login", h.Login)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.Auth), rbac.RequireActor())
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
		})

		apps := v1.Group("/applications")
		{
			apps.POST("", h.CreateApplication)
			apps.GET("/:application_id", h.GetApplication)
			apps.GET("/:application_id/timeline", h.GetTimeline)
			apps.GET("/:application_id/transitions", h.ListTransitions)
			// per-transition role rules live in the workflow table
			apps.POST("/:application_id/transitions", h.RequestTransition)

			screenings := apps.Group("/:application_id/screenings")
			screenings.Use(rbac.RequireAnyRole(rbac.RoleRecruiter, rbac.RoleSystem))
			{
				screenings.GET("", h.ListScreenings)
				screenings.POST("", h.ScheduleScreening)
			}
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/applications/:application_id/audit", h.ListAuditEvents)
		}
	}
}
