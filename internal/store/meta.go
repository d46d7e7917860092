package store

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a tenant-owned record.
type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

// Lifecycle replaces the deleted/deleted_at/deleted_by triplet.
// At and By are only meaningful when State is StateDeleted.
type Lifecycle struct {
	State State
	At    time.Time
	By    string
}

func (l Lifecycle) Deleted() bool { return l.State == StateDeleted }

// Active returns the default lifecycle of a freshly created record.
func Active() Lifecycle { return Lifecycle{State: StateActive} }

// DeletedBy returns a soft-deleted lifecycle stamped with actor and time.
func DeletedBy(actor string, at time.Time) Lifecycle {
	return Lifecycle{State: StateDeleted, At: at, By: actor}
}

// Meta holds the fields every tenant-owned record carries.
// TenantID is immutable after creation and is the only isolation predicate.
type Meta struct {
	ID            string
	TenantID      string
	Lifecycle     Lifecycle
	CreatedDate   time.Time
	CreatedBy     string
	LastUpdated   time.Time
	LastUpdatedBy string
}

// SystemTenant marks global records that belong to no customer tenant.
const SystemTenant = "system"

type metaJSON struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId"`
	Deleted       bool       `json:"deleted"`
	DeletedAt     *time.Time `json:"deleted_at"`
	DeletedBy     *string    `json:"deleted_by"`
	CreatedDate   time.Time  `json:"created_date"`
	CreatedBy     string     `json:"created_by"`
	LastUpdated   *time.Time `json:"last_updated"`
	LastUpdatedBy *string    `json:"last_updated_by"`
}

// MarshalJSON keeps the external record shape stable: deleted, deleted_at
// and deleted_by are derived from Lifecycle.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := metaJSON{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Deleted:     m.Lifecycle.Deleted(),
		CreatedDate: m.CreatedDate,
		CreatedBy:   m.CreatedBy,
	}
	if m.Lifecycle.Deleted() {
		at, by := m.Lifecycle.At, m.Lifecycle.By
		out.DeletedAt = &at
		out.DeletedBy = &by
	}
	if !m.LastUpdated.IsZero() {
		lu, lub := m.LastUpdated, m.LastUpdatedBy
		out.LastUpdated = &lu
		out.LastUpdatedBy = &lub
	}
	return json.Marshal(out)
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var in metaJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*m = Meta{
		ID:          in.ID,
		TenantID:    in.TenantID,
		Lifecycle:   Active(),
		CreatedDate: in.CreatedDate,
		CreatedBy:   in.CreatedBy,
	}
	if in.Deleted {
		m.Lifecycle.State = StateDeleted
		if in.DeletedAt != nil {
			m.Lifecycle.At = *in.DeletedAt
		}
		if in.DeletedBy != nil {
			m.Lifecycle.By = *in.DeletedBy
		}
	}
	if in.LastUpdated != nil {
		m.LastUpdated = *in.LastUpdated
	}
	if in.LastUpdatedBy != nil {
		m.LastUpdatedBy = *in.LastUpdatedBy
	}
	return nil
}

// Row is the storage unit: record metadata plus the record-specific body.
type Row struct {
	Meta Meta
	Body json.RawMessage
}

func (r Row) clone() Row {
	out := r
	if r.Body != nil {
		out.Body = append(json.RawMessage(nil), r.Body...)
	}
	return out
}
