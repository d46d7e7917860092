package httpapi

import (
	"net/http"

	"dashboard-platform/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListUsers lists the user profiles of the tenant in the path.
func (h Handlers) ListUsers(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	recs, err := repository.NewUsers(h.Store, tc).InTenant(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

type userRequest struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email" binding:"required"`
	Name   string `json:"name"`
}

// CreateUser adds a profile to the tenant in the path.
func (h Handlers) CreateUser(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	tenantID := c.Param("tenantId")
	rec, err := repository.NewUsers(h.Store, tc).CreateIn(c.Request.Context(), tenantID, repository.User{
		UserID: req.UserID,
		Email:  req.Email,
		Name:   req.Name,
	})
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, tenantID, "user", rec.Meta.ID, "user created")
	c.JSON(http.StatusCreated, rec)
}
