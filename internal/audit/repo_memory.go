package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrDuplicateEvent = errors.New("audit: duplicate event id")

// MemoryRepo keeps events in process memory with the guarantees of the
// audit_events table: append only, unique ids, and readers never share
// storage with the log.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []Event
	ids    map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{ids: make(map[string]struct{})} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ids[e.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
	}
	r.ids[e.ID] = struct{}{}
	r.events = append(r.events, cloneEvent(e))
	return nil
}

// Events returns every event in append order.
func (r *MemoryRepo) Events() []Event {
	return r.collect(func(Event) bool { return true })
}

// ForTenant returns the events recorded inside tenantID, in append order.
func (r *MemoryRepo) ForTenant(tenantID string) []Event {
	return r.collect(func(e Event) bool { return e.TenantID == tenantID })
}

func (r *MemoryRepo) collect(keep func(Event) bool) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			out = append(out, cloneEvent(e))
		}
	}
	return out
}

func cloneEvent(e Event) Event {
	e.Metadata = bytes.Clone(e.Metadata)
	return e
}
