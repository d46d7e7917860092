package main

import (
	"net/http"
	"time"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/httpapi"
	"dashboard-platform/internal/rbac"
	"dashboard-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
//
// Every /v1 route authenticates first. Routes touching tenant data then run
// EnforceTenantScope, and only then any role or capability check.
func registerRoutes(r *gin.Engine, d deps) {
	r.GET("/healthz", func(c *gin.Context) {
		if d.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := httpapi.Handlers{
		Store: d.store,
		Authz: d.authorizer,
		Auth:  d.tokens,
		Deny:  d.deny,
		Audit: d.audit,
	}
	scope := rbac.EnforceTenantScope(d.authorizer, d.bodyLimit)
	can := func(c authz.Capability) gin.HandlerFunc { return rbac.RequireCapability(d.authorizer, c) }

	v1 := r.Group("/v1")
	v1.Use(auth.Authenticate(d.tokens, d.deny))
	{
		v1.GET("/me", scope, h.Me)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/logout", h.Logout)
			authGroup.POST("/token", rbac.RequirePlatformAdmin(), h.IssueToken)
		}

		docs := v1.Group("/documents", scope)
		{
			docs.GET("", can(authz.CapDocumentsRead), h.ListDocuments)
			docs.POST("", can(authz.CapDocumentsWrite), h.CreateDocument)
			docs.GET("/:id", can(authz.CapDocumentsRead), h.GetDocument)
			docs.PATCH("/:id", can(authz.CapDocumentsWrite), h.UpdateDocument)
			docs.DELETE("/:id", can(authz.CapDocumentsWrite), h.DeleteDocument)
			docs.POST("/:id/restore", can(authz.CapDocumentsWrite), h.RestoreDocument)
		}

		workflows := v1.Group("/workflows", scope)
		{
			workflows.GET("", can(authz.CapWorkflowsRead), h.ListWorkflows)
			workflows.POST("", can(authz.CapWorkflowsWrite), h.CreateWorkflow)
			workflows.GET("/:id/executions", can(authz.CapWorkflowsRead), h.ListWorkflowExecutions)
			workflows.POST("/:id/executions", can(authz.CapWorkflowsExecute), h.StartExecution)
		}

		tenants := v1.Group("/tenants/:tenantId", scope)
		{
			tenants.GET("/documents", can(authz.CapDocumentsRead), h.ListTenantDocuments)

			admin := tenants.Group("", rbac.RequireTenantAdmin(d.authorizer))
			admin.GET("/members", h.ListMembers)
			admin.POST("/members", h.AddMember)
			admin.PATCH("/members/:id/role", h.SetMemberRole)
			admin.POST("/members/:id/suspend", h.SuspendMember)
			admin.POST("/members/:id/activate", h.ActivateMember)
			admin.DELETE("/members/:id", h.RemoveMember)
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
		}

		platform := v1.Group("/admin", rbac.RequirePlatformAdmin())
		{
			platform.GET("/tenants/:tenantId/executions", scope, h.ListTenantExecutions)
		}
	}
}
