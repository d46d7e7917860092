package audit

import (
	"encoding/json"
	"time"
)

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required; platform-wide events use store.SystemTenant.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
type Event struct {
	ID       string    `json:"id" db:"id"`
	TenantID string    `json:"tenant_id" db:"tenant_id"`
	Type     EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole is the platform role at the time of the action.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	TargetKind string `json:"target_kind,omitempty" db:"target_kind"`
	TargetID   string `json:"target_id,omitempty" db:"target_id"`

	Message  string          `json:"message,omitempty" db:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventMembershipAdded       EventType = "membership_added"
	EventMembershipRoleChanged EventType = "membership_role_changed"
	EventMembershipSuspended   EventType = "membership_suspended"
	EventMembershipActivated   EventType = "membership_activated"
	EventMembershipRemoved     EventType = "membership_removed"
	// EventAdminWrite is a platform admin writing into a customer tenant.
	EventAdminWrite   EventType = "admin_write"
	EventTokenIssued  EventType = "token_issued"
	EventTokenRevoked EventType = "token_revoked"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string
	Role   string
	IP     string
}
