package httpapi

import (
	"errors"
	"net/http"
	"time"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/audit"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/repository"
	"dashboard-platform/internal/tenancy"
	"dashboard-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Membership administration. Routes run EnforceTenantScope and
// RequireTenantAdmin first, so :tenantId is a tenant the caller administers.

type memberResponse struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	TenantID    string   `json:"tenantId"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Permissions []string `json:"permissions,omitempty"`
	CreatedDate string   `json:"created_date"`
}

func toMemberResponse(rec repository.Record[repository.MembershipData]) memberResponse {
	m := repository.ToMembership(rec)
	return memberResponse{
		ID:          m.ID,
		UserID:      m.UserID,
		TenantID:    m.TenantID,
		Role:        string(m.Role),
		Status:      string(m.Status),
		Permissions: m.Permissions,
		CreatedDate: m.CreatedDate.UTC().Format(time.RFC3339),
	}
}

func (h Handlers) memberships(c *gin.Context) (*repository.Memberships, tenancy.Context, bool) {
	tc, ok := tenantContext(c)
	if !ok {
		return nil, tenancy.Context{}, false
	}
	return repository.NewMemberships(h.Store, tc), tc, true
}

func (h Handlers) ListMembers(c *gin.Context) {
	ms, _, ok := h.memberships(c)
	if !ok {
		return
	}
	recs, err := ms.InTenant(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		repoError(c, err)
		return
	}
	out := make([]memberResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toMemberResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

type addMemberRequest struct {
	UserID      string   `json:"userId" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
}

func (h Handlers) AddMember(c *gin.Context) {
	ms, tc, ok := h.memberships(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	tenantID := c.Param("tenantId")
	rec, err := ms.Add(c.Request.Context(), tenantID, req.UserID, authz.Role(req.Role), req.Permissions)
	if err != nil {
		memberError(c, err)
		return
	}
	h.auditMembership(c, tc, audit.EventMembershipAdded, rec, map[string]any{"userId": req.UserID, "role": req.Role})
	c.JSON(http.StatusCreated, toMemberResponse(rec))
}

type setRoleRequest struct {
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
}

func (h Handlers) SetMemberRole(c *gin.Context) {
	ms, tc, ok := h.memberships(c)
	if !ok {
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	rec, err := ms.SetRole(c.Request.Context(), c.Param("tenantId"), c.Param("id"), authz.Role(req.Role), req.Permissions)
	if err != nil {
		memberError(c, err)
		return
	}
	h.auditMembership(c, tc, audit.EventMembershipRoleChanged, rec, map[string]any{"role": req.Role, "permissions": req.Permissions})
	c.JSON(http.StatusOK, toMemberResponse(rec))
}

func (h Handlers) SuspendMember(c *gin.Context) {
	ms, tc, ok := h.memberships(c)
	if !ok {
		return
	}
	rec, err := ms.Suspend(c.Request.Context(), c.Param("tenantId"), c.Param("id"))
	if err != nil {
		memberError(c, err)
		return
	}
	h.auditMembership(c, tc, audit.EventMembershipSuspended, rec, nil)
	c.JSON(http.StatusOK, toMemberResponse(rec))
}

func (h Handlers) ActivateMember(c *gin.Context) {
	ms, tc, ok := h.memberships(c)
	if !ok {
		return
	}
	rec, err := ms.Activate(c.Request.Context(), c.Param("tenantId"), c.Param("id"))
	if err != nil {
		memberError(c, err)
		return
	}
	h.auditMembership(c, tc, audit.EventMembershipActivated, rec, nil)
	c.JSON(http.StatusOK, toMemberResponse(rec))
}

func (h Handlers) RemoveMember(c *gin.Context) {
	ms, tc, ok := h.memberships(c)
	if !ok {
		return
	}
	tenantID, id := c.Param("tenantId"), c.Param("id")
	if err := ms.Remove(c.Request.Context(), tenantID, id); err != nil {
		memberError(c, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.LogMembership(c.Request.Context(), audit.EventMembershipRemoved, tenantID, id, actor(c, tc.Identity()), nil); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func memberError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrConflict) {
		apierr.Abort(c, http.StatusConflict, apierr.CodeMembershipExists, "User already has an active membership in this tenant")
		return
	}
	repoError(c, err)
}

func (h Handlers) auditMembership(c *gin.Context, tc tenancy.Context, typ audit.EventType, rec repository.Record[repository.MembershipData], details map[string]any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogMembership(c.Request.Context(), typ, rec.Meta.TenantID, rec.Meta.ID, actor(c, tc.Identity()), details); err != nil {
		logger.FromGin(c).Warn("audit append failed", "type", string(typ), "err", err)
	}
}
