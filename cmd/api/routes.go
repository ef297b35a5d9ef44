package main

import (
	"visitor-platform/internal/httpapi"
	"visitor-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public portal: visit requests and self-service code validation.
	// No session required; the 6-digit code is the credential.
	portal := r.Group("/portal")
	{
		portal.POST("/visits", h.SubmitVisit)
		portal.POST("/code/validate", h.ValidateCode)
	}

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.GET("/accounts", h.DemoAccounts)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// KIOSK routes: arrivals board, walk-ins, check-in and checkout.
		// Checkout passes the session role through, so a kiosk session is
		// subject to the exit-permission guard while privileged roles are not.
		kiosk := v1.Group("/kiosk")
		kiosk.Use(rbac.RequireAnyRole(rbac.RoleKiosk, rbac.RoleReception, rbac.RoleGatehouse))
		{
			kiosk.GET("/arrivals", h.Arrivals)
			kiosk.POST("/qr/resolve", h.ResolveQR)
			kiosk.POST("/walkins", h.RegisterWalkIn)
			kiosk.POST("/visits/:id/checkin", h.CheckIn)
			kiosk.POST("/visits/:id/checkout", h.CheckOut)
		}

		// GATEHOUSE routes: on-site list and exit authorization.
		gatehouse := v1.Group("/gatehouse")
		gatehouse.Use(rbac.RequireAnyRole(rbac.RoleGatehouse))
		{
			gatehouse.GET("/onsite", h.OnSite)
			gatehouse.POST("/visits/:id/authorize-exit", h.AuthorizeExit)
		}

		// ADMIN routes: approvals, rejections and judicial screening.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleReception))
		{
			admin.POST("/visits/:id/approve", h.Approve)
			admin.POST("/visits/:id/reject", h.Reject)
			admin.POST("/visits/:id/judicial", h.RecordJudicial)
		}

		// DASHBOARD routes: read views, reports, audit trail, notifications.
		dash := v1.Group("/dashboard")
		dash.Use(rbac.RequireAnyRole(rbac.RoleReception, rbac.RoleGatehouse, rbac.RoleHost, rbac.RoleSOS))
		{
			dash.GET("/visits", h.ListVisits)
			dash.GET("/visits/:id/export", h.ExportVisit)
			dash.GET("/reports/summary", h.Summary)
			dash.GET("/audit", h.AuditLog)
			dash.GET("/notifications", h.Notifications)
			dash.DELETE("/notifications", h.ClearNotifications)
		}

		// EVACUATION routes: roster, accounting marks, drill reset.
		evac := v1.Group("/evacuation")
		evac.Use(rbac.RequireAnyRole(rbac.RoleSOS, rbac.RoleGatehouse))
		{
			evac.GET("/roster", h.EvacuationRoster)
			evac.POST("/roster/:id/safe", h.EvacuationMarkSafe)
			evac.POST("/roster/:id/missing", h.EvacuationMarkMissing)
			evac.POST("/roster/reset", h.EvacuationReset)
		}
	}
}
