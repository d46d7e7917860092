package authz

import (
	"slices"
	"time"
)

// Role is a membership role within one tenant. Keep these stable; they are
// persisted and part of the API contract.
type Role string

const (
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
	RoleViewer      Role = "viewer"
	RoleCustom      Role = "custom"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTenantAdmin, RoleUser, RoleViewer, RoleCustom:
		return true
	default:
		return false
	}
}

type MembershipStatus string

const (
	StatusActive    MembershipStatus = "active"
	StatusSuspended MembershipStatus = "suspended"
)

func (s MembershipStatus) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// Membership is the read model the Authorizer decides over.
type Membership struct {
	ID          string
	UserID      string
	TenantID    string
	Role        Role
	Status      MembershipStatus
	Permissions []string
	CreatedDate time.Time
}

func (m Membership) Active() bool { return m.Status == StatusActive }

// Capability is an open-world permission token. Custom roles carry arbitrary
// capability strings; checks are plain set containment so new capabilities
// need no code change here.
type Capability string

const (
	CapDocumentsRead    Capability = "documents:read"
	CapDocumentsWrite   Capability = "documents:write"
	CapWorkflowsRead    Capability = "workflows:read"
	CapWorkflowsWrite   Capability = "workflows:write"
	CapWorkflowsExecute Capability = "workflows:execute"
	CapMembersManage    Capability = "members:manage"
	CapWildcard         Capability = "*"
)

var builtinCapabilities = map[Role][]Capability{
	RoleUser:   {CapDocumentsRead, CapDocumentsWrite, CapWorkflowsRead, CapWorkflowsWrite, CapWorkflowsExecute},
	RoleViewer: {CapDocumentsRead, CapWorkflowsRead},
}

// Grants reports whether membership m grants capability c. Inactive
// memberships grant nothing.
func (m Membership) Grants(c Capability) bool {
	if !m.Active() {
		return false
	}
	switch m.Role {
	case RoleTenantAdmin:
		return true
	case RoleCustom:
		return slices.Contains(m.Permissions, string(CapWildcard)) || slices.Contains(m.Permissions, string(c))
	default:
		return slices.Contains(builtinCapabilities[m.Role], c)
	}
}
