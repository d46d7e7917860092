package repository

import (
	"context"
	"encoding/json"

	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
)

type Document struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Status  string          `json:"status,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Documents is the documents collection, optionally narrowed to one type.
type Documents struct {
	*Collection[Document]
	docType string
}

// NewDocuments returns a documents repository. A non-empty docType restricts
// every read to that type and stamps it on every create.
func NewDocuments(s store.Store, tc tenancy.Context, docType string, opts ...Option) *Documents {
	if docType != "" {
		opts = append(opts, WithScope(func(q store.Query) store.Query {
			return q.With(store.Eq(store.Data("type"), docType))
		}))
	}
	return &Documents{
		Collection: NewCollection[Document](s, store.CollectionDocuments, tc, opts...),
		docType:    docType,
	}
}

func (d *Documents) Create(ctx context.Context, doc Document) (Record[Document], error) {
	if d.docType != "" {
		doc.Type = d.docType
	}
	return d.Collection.Create(ctx, doc)
}

func (d *Documents) CreateIn(ctx context.Context, tenantID string, doc Document) (Record[Document], error) {
	if d.docType != "" {
		doc.Type = d.docType
	}
	return d.Collection.CreateIn(ctx, tenantID, doc)
}

// Update keeps a typed repository from moving a document to another type.
func (d *Documents) Update(ctx context.Context, id string, patch map[string]any) (Record[Document], error) {
	if d.docType != "" {
		if _, ok := patch["type"]; ok {
			patch = sanitizePatch(patch)
			delete(patch, "type")
		}
	}
	return d.Collection.Update(ctx, id, patch)
}

// InTenant lists documents of one tenant, which must still be allowed.
func (d *Documents) InTenant(ctx context.Context, tenantID string, ro ReadOptions) ([]Record[Document], error) {
	return d.Find(ctx, store.Where(store.Eq(store.FieldTenantID, tenantID)), ro)
}
