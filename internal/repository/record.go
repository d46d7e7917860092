package repository

import (
	"encoding/json"
	"fmt"

	"dashboard-platform/internal/store"
)

// Record pairs the tenant-owned metadata with the record-specific data.
type Record[T any] struct {
	Meta store.Meta
	Data T
}

// reserved keys belong to Meta and are never taken from caller data.
var reserved = map[string]bool{
	"id":              true,
	"tenantId":        true,
	"tenant_id":       true,
	"state":           true,
	"deleted":         true,
	"deleted_at":      true,
	"deleted_by":      true,
	"created_date":    true,
	"created_by":      true,
	"last_updated":    true,
	"last_updated_by": true,
}

// MarshalJSON renders a flat object: data fields plus the metadata fields,
// metadata taking precedence.
func (r Record[T]) MarshalJSON() ([]byte, error) {
	out, err := toMap(r.Data)
	if err != nil {
		return nil, err
	}
	meta, err := toMap(r.Meta)
	if err != nil {
		return nil, err
	}
	for k, v := range meta {
		out[k] = v
	}
	return json.Marshal(out)
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if string(b) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("record data must encode as a JSON object: %w", err)
	}
	return out, nil
}

func encodeBody(v any) (json.RawMessage, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	for k := range m {
		if reserved[k] {
			delete(m, k)
		}
	}
	return json.Marshal(m)
}

func sanitizePatch(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if !reserved[k] {
			out[k] = v
		}
	}
	return out
}

func decodeRecord[T any](row store.Row) (Record[T], error) {
	rec := Record[T]{Meta: row.Meta}
	if len(row.Body) > 0 {
		if err := json.Unmarshal(row.Body, &rec.Data); err != nil {
			return Record[T]{}, fmt.Errorf("decode %s: %w", row.Meta.ID, err)
		}
	}
	return rec, nil
}
