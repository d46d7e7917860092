package authz

import (
	"encoding/json"
	"slices"
)

// AllowedTenants is either every tenant or an explicit set of tenant ids.
// The zero value allows nothing.
type AllowedTenants struct {
	all bool
	ids []string
}

func AllTenants() AllowedTenants { return AllowedTenants{all: true} }

// OnlyTenants returns a set holding a sorted, de-duplicated copy of ids.
func OnlyTenants(ids ...string) AllowedTenants {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return AllowedTenants{ids: slices.Compact(out)}
}

func (a AllowedTenants) All() bool { return a.all }

func (a AllowedTenants) IDs() []string { return slices.Clone(a.ids) }

func (a AllowedTenants) Empty() bool { return !a.all && len(a.ids) == 0 }

func (a AllowedTenants) Contains(tenantID string) bool {
	if a.all {
		return tenantID != ""
	}
	_, ok := slices.BinarySearch(a.ids, tenantID)
	return ok
}

// Intersect returns the tenants present in both a and b.
func (a AllowedTenants) Intersect(b AllowedTenants) AllowedTenants {
	switch {
	case a.all:
		return b.clone()
	case b.all:
		return a.clone()
	}
	var ids []string
	for _, id := range a.ids {
		if b.Contains(id) {
			ids = append(ids, id)
		}
	}
	return AllowedTenants{ids: ids}
}

func (a AllowedTenants) clone() AllowedTenants {
	return AllowedTenants{all: a.all, ids: slices.Clone(a.ids)}
}

// MarshalJSON renders "all" or the list of ids.
func (a AllowedTenants) MarshalJSON() ([]byte, error) {
	if a.all {
		return json.Marshal("all")
	}
	ids := a.ids
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}
