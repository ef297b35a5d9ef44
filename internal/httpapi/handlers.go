package httpapi

import (
	"errors"
	"net/http"
	"time"

	"visitor-platform/internal/accounts"
	"visitor-platform/internal/audit"
	"visitor-platform/internal/auth"
	"visitor-platform/internal/credential"
	"visitor-platform/internal/evacuation"
	"visitor-platform/internal/notify"
	"visitor-platform/internal/report"
	"visitor-platform/internal/sweep"
	"visitor-platform/internal/visit"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Accounts *accounts.Table
	Visits   *visit.Service
	Reports  *report.Service
	Evac     *evacuation.Roster
	Audit    *audit.Service
	Notify   *notify.Center
	Sweeper  *sweep.Sweeper
}

/* ===================== AUTH ===================== */

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login resolves demo credentials and issues a JWT pair carrying the role.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.Notify.Push("Datos incompletos", notify.SeverityWarn)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	account, ok := h.Accounts.Resolve(req.Email, req.Password)
	if !ok {
		h.Notify.Crit("Credenciales inválidas")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), account.Email, account.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	_ = h.Audit.Log(c.Request.Context(), audit.CategoryLogin, "Ingreso de "+account.Email, "Portal Auth")
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"role":          account.Role,
	})
}

// DemoAccounts lists the demo credential hints for the login screen.
func (h Handlers) DemoAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": h.Accounts.List()})
}

/* ===================== PUBLIC PORTAL ===================== */

// SubmitVisit creates a pending visit from the public portal form.
func (h Handlers) SubmitVisit(c *gin.Context) {
	var req visit.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := h.Visits.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

type codeValidateRequest struct {
	Code string `json:"code"`
}

// ValidateCode resolves a 6-digit validation code for the self-service
// portal, distinguishing invalid, expired and exhausted codes.
func (h Handlers) ValidateCode(c *gin.Context) {
	var req codeValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Code) < 6 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "a 6-digit code is required"})
		return
	}

	v, err := h.Visits.LookupByCode(req.Code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, v)
	case errors.Is(err, credential.ErrCodeExpired):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "expired", "message": "El código expiró. Espera la siguiente rotación."})
	case errors.Is(err, credential.ErrCodeExhausted):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "exhausted", "message": "El código ya no tiene usos disponibles."})
	default:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid", "message": "Código no válido."})
	}
}

/* ===================== KIOSK ===================== */

// Arrivals lists approved visits with live credentials plus the last
// rotation instant, so the kiosk can render its countdown.
func (h Handlers) Arrivals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"visits":        h.Visits.ActiveApproved(),
		"last_rotation": h.Sweeper.LastSweep(),
	})
}

type qrResolveRequest struct {
	Token string `json:"qr_token"`
}

// ResolveQR maps a scanned QR token to its visit.
func (h Handlers) ResolveQR(c *gin.Context) {
	var req qrResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "qr_token required"})
		return
	}
	v, err := h.Visits.LookupByQR(req.Token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown qr token"})
		return
	}
	c.JSON(http.StatusOK, v)
}

// RegisterWalkIn creates an on-the-spot approved visit at the kiosk.
func (h Handlers) RegisterWalkIn(c *gin.Context) {
	var req visit.WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := h.Visits.RegisterWalkIn(c.Request.Context(), req)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// CheckIn attaches the evidence bundle and moves the visit on-site, then
// spends one credential use.
func (h Handlers) CheckIn(c *gin.Context) {
	var bundle visit.EvidenceBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := c.Param("id")
	v, err := h.Visits.CheckIn(c.Request.Context(), id, bundle)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	if v, err = h.Visits.ConsumeCredential(c.Request.Context(), id); err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// CheckOut attempts the exit transition with the caller's session role.
// A guard denial is an expected outcome: 403 with the decision, store
// untouched.
func (h Handlers) CheckOut(c *gin.Context) {
	role, err := auth.Role(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
		return
	}

	d, err := h.Visits.CheckOut(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	if !d.Allowed {
		c.JSON(http.StatusForbidden, d)
		return
	}
	c.JSON(http.StatusOK, d)
}

/* ===================== GATEHOUSE ===================== */

type authorizeExitRequest struct {
	GuardName string `json:"guard_name"`
}

// AuthorizeExit records the gatehouse asset/badge validation that opens
// the exit permission.
func (h Handlers) AuthorizeExit(c *gin.Context) {
	var req authorizeExitRequest
	_ = c.ShouldBindJSON(&req)
	if req.GuardName == "" {
		if uid, err := auth.UserID(c.Request.Context()); err == nil {
			req.GuardName = uid
		}
	}

	v, err := h.Visits.AuthorizeExit(c.Request.Context(), c.Param("id"), req.GuardName)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

/* ===================== ADMIN ===================== */

func (h Handlers) Approve(c *gin.Context) {
	v, err := h.Visits.Approve(c.Request.Context(), c.Param("id"), h.actor(c))
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h Handlers) Reject(c *gin.Context) {
	v, err := h.Visits.Reject(c.Request.Context(), c.Param("id"), h.actor(c))
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type judicialRequest struct {
	Result      string `json:"result"`
	Observation string `json:"observation"`
}

func (h Handlers) RecordJudicial(c *gin.Context) {
	var req judicialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := h.Visits.RecordJudicialResult(c.Request.Context(), c.Param("id"), req.Result, req.Observation)
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

/* ===================== DASHBOARDS / VIEWS ===================== */

// ListVisits serves the dashboard tables. Filters are mutually exclusive
// query params: host, date, q.
func (h Handlers) ListVisits(c *gin.Context) {
	switch {
	case c.Query("host") != "":
		c.JSON(http.StatusOK, gin.H{"visits": h.Visits.ByHost(c.Query("host"))})
	case c.Query("date") != "":
		c.JSON(http.StatusOK, gin.H{"visits": h.Visits.ByDate(c.Query("date"))})
	case c.Query("q") != "":
		c.JSON(http.StatusOK, gin.H{"visits": h.Visits.Search(c.Query("q"))})
	default:
		c.JSON(http.StatusOK, gin.H{"visits": h.Visits.All()})
	}
}

// OnSite serves the gatehouse exit-control list.
func (h Handlers) OnSite(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visits": h.Visits.OnSite()})
}

func (h Handlers) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reports.Summary())
}

// ExportVisit returns the full read-only record plus evidence for the
// PDF/CSV collaborator.
func (h Handlers) ExportVisit(c *gin.Context) {
	out, err := h.Reports.Export(c.Param("id"))
	if err != nil {
		h.writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AuditLog(c *gin.Context) {
	entries, err := h.Audit.List(c.Request.Context(), 0)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h Handlers) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.Notify.List()})
}

func (h Handlers) ClearNotifications(c *gin.Context) {
	h.Notify.Clear()
	c.Status(http.StatusNoContent)
}

/* ===================== EVACUATION ===================== */

func (h Handlers) EvacuationRoster(c *gin.Context) {
	filter := evacuation.Filter(c.DefaultQuery("filter", string(evacuation.FilterAll)))
	c.JSON(http.StatusOK, gin.H{
		"entries": h.Evac.List(filter, c.Query("q")),
		"stats":   h.Evac.Stats(),
	})
}

func (h Handlers) EvacuationMarkSafe(c *gin.Context) {
	h.Evac.MarkSafe(c.Param("id"))
	c.JSON(http.StatusOK, h.Evac.Stats())
}

func (h Handlers) EvacuationMarkMissing(c *gin.Context) {
	h.Evac.MarkMissing(c.Param("id"))
	c.JSON(http.StatusOK, h.Evac.Stats())
}

func (h Handlers) EvacuationReset(c *gin.Context) {
	h.Evac.Reset()
	c.JSON(http.StatusOK, h.Evac.Stats())
}

/* ===================== HELPERS ===================== */

func (h Handlers) actor(c *gin.Context) string {
	if uid, err := auth.UserID(c.Request.Context()); err == nil {
		return uid
	}
	return "unknown"
}

func (h Handlers) writeVisitError(c *gin.Context, err error) {
	var verr *visit.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "validation", "fields": verr.Fields})
	case errors.Is(err, visit.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "visit not found"})
	case errors.Is(err, visit.ErrIllegalTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "illegal status transition"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
