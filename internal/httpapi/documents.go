package httpapi

import (
	"encoding/json"
	"net/http"

	"dashboard-platform/internal/repository"
	"dashboard-platform/internal/store"

	"github.com/gin-gonic/gin"
)

func (h Handlers) documents(c *gin.Context) (*repository.Documents, bool) {
	tc, ok := tenantContext(c)
	if !ok {
		return nil, false
	}
	return repository.NewDocuments(h.Store, tc, c.Query("type")), true
}

// ListDocuments lists documents across every tenant the caller may read.
func (h Handlers) ListDocuments(c *gin.Context) {
	docs, ok := h.documents(c)
	if !ok {
		return
	}
	ro, ok := listOptions(c)
	if !ok {
		return
	}
	recs, err := docs.Find(c.Request.Context(), store.Query{}, ro)
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

// ListTenantDocuments lists the documents of the tenant named in the path.
// EnforceTenantScope has already rejected tenants outside the caller's set.
func (h Handlers) ListTenantDocuments(c *gin.Context) {
	docs, ok := h.documents(c)
	if !ok {
		return
	}
	ro, ok := listOptions(c)
	if !ok {
		return
	}
	recs, err := docs.InTenant(c.Request.Context(), c.Param("tenantId"), ro)
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

func (h Handlers) GetDocument(c *gin.Context) {
	docs, ok := h.documents(c)
	if !ok {
		return
	}
	rec, err := docs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		repoError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type documentRequest struct {
	Type    string          `json:"type"`
	Title   string          `json:"title" binding:"required"`
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
}

// CreateDocument stores a document in the request's active tenant. A tenantId
// in the body only selects among tenants the caller already has.
func (h Handlers) CreateDocument(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	docs := repository.NewDocuments(h.Store, tc, "")
	rec, err := docs.Create(c.Request.Context(), repository.Document{
		Type:    req.Type,
		Title:   req.Title,
		Status:  req.Status,
		Content: req.Content,
	})
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "document", rec.Meta.ID, "document created")
	c.JSON(http.StatusCreated, rec)
}

// UpdateDocument applies a partial update. Metadata fields in the body are
// ignored.
func (h Handlers) UpdateDocument(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil || len(patch) == 0 {
		badJSON(c)
		return
	}
	rec, err := repository.NewDocuments(h.Store, tc, "").Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "document", rec.Meta.ID, "document updated")
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) DeleteDocument(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	docs := repository.NewDocuments(h.Store, tc, "")
	rec, err := docs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		repoError(c, err)
		return
	}
	if err := docs.Delete(c.Request.Context(), rec.Meta.ID); err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "document", rec.Meta.ID, "document deleted")
	c.Status(http.StatusNoContent)
}

func (h Handlers) RestoreDocument(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	rec, err := repository.NewDocuments(h.Store, tc, "").Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		repoError(c, err)
		return
	}
	h.auditAdminWrite(c, tc, rec.Meta.TenantID, "document", rec.Meta.ID, "document restored")
	c.JSON(http.StatusOK, rec)
}

