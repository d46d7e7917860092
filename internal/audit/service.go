package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is
// append-only; there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// Audit is internal-only; these records are not exposed to tenant users.
// Callers treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogMembership records a membership mutation inside tenantID. details is
// marshaled into the event metadata.
func (s *Service) LogMembership(ctx context.Context, typ EventType, tenantID, membershipID string, actor Actor, details map[string]any) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        typ,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		TargetKind:  "membership",
		TargetID:    membershipID,
		Metadata:    encodeDetails(details),
	})
}

// LogAdminWrite records a platform admin writing into a customer tenant.
func (s *Service) LogAdminWrite(ctx context.Context, tenantID, kind, id string, actor Actor, message string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventAdminWrite,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		TargetKind:  kind,
		TargetID:    id,
		Message:     message,
	})
}

// LogToken records issuing or revoking the token with jti tokenID.
func (s *Service) LogToken(ctx context.Context, typ EventType, tenantID, tokenID, subject string, actor Actor) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        typ,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		TargetKind:  "token",
		TargetID:    tokenID,
		Metadata:    encodeDetails(map[string]any{"subject": subject}),
	})
}

func encodeDetails(details map[string]any) json.RawMessage {
	if len(details) == 0 {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return b
}
