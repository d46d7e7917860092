package httpapi

import (
	"encoding/json"
	"net/http"

	"dashboard-platform/internal/repository"
	"dashboard-platform/internal/store"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListWorkflows(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	ro, ok := listOptions(c)
	if !ok {
		return
	}
	recs, err := repository.NewWorkflows(h.Store, tc).Find(c.Request.Context(), store.Query{}, ro)
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

type workflowRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Enabled     bool            `json:"enabled"`
	Definition  json.RawMessage `json:"definition"`
}

func (h Handlers) CreateWorkflow(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	rec, err := repository.NewWorkflows(h.Store, tc).Create(c.Request.Context(), repository.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Definition:  req.Definition,
	})
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "workflow", rec.Meta.ID, "workflow created")
	c.JSON(http.StatusCreated, rec)
}

// StartExecution queues a run of a workflow visible to the caller. The run is
// stored in the workflow's tenant regardless of the request's active tenant.
func (h Handlers) StartExecution(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	wf, err := repository.NewWorkflows(h.Store, tc).FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		repoError(c, err)
		return
	}
	rec, err := repository.NewExecutions(h.Store, tc).Start(c.Request.Context(), wf)
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "execution", rec.Meta.ID, "execution queued")
	c.JSON(http.StatusAccepted, rec)
}

func (h Handlers) ListWorkflowExecutions(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	wf, err := repository.NewWorkflows(h.Store, tc).FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		repoError(c, err)
		return
	}
	recs, err := repository.NewExecutions(h.Store, tc).ForWorkflow(c.Request.Context(), wf.Meta.ID)
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

// ListTenantExecutions is the platform-admin view of one tenant's runs.
func (h Handlers) ListTenantExecutions(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	ro, ok := listOptions(c)
	if !ok {
		return
	}
	recs, err := repository.NewExecutions(h.Store, tc).InTenant(c.Request.Context(), c.Param("tenantId"), ro)
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}
