package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store for tests and local development.
// It honors the same partial unique indexes the Postgres schema declares.
//
// NOTE: Not intended for production; data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[string][]Row
	uniques map[string][]UniqueIndex
}

// UniqueIndex rejects a second row in a collection whose Fields all match an
// existing row, considering only rows that satisfy Where.
type UniqueIndex struct {
	Name   string
	Fields []string
	Where  Query
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		rows:    map[string][]Row{},
		uniques: map[string][]UniqueIndex{},
	}
	for coll, idx := range defaultUniqueIndexes() {
		s.uniques[coll] = append(s.uniques[coll], idx...)
	}
	return s
}

func (s *MemoryStore) AddUniqueIndex(collection string, idx UniqueIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uniques[collection] = append(s.uniques[collection], idx)
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q Query, opts FindOptions) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Row
	for _, r := range s.rows[collection] {
		ok, err := q.Matches(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r.clone())
		}
	}

	slices.SortStableFunc(out, func(a, b Row) int {
		c := a.Meta.CreatedDate.Compare(b.Meta.CreatedDate)
		if c == 0 {
			c = strings.Compare(a.Meta.ID, b.Meta.ID)
		}
		if opts.Desc {
			return -c
		}
		return c
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if row.Meta.ID == "" {
		return fmt.Errorf("store: insert without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows[collection] {
		if r.Meta.ID == row.Meta.ID {
			return fmt.Errorf("%w: duplicate id %s", ErrConflict, row.Meta.ID)
		}
	}
	if err := s.checkUnique(collection, row, ""); err != nil {
		return err
	}
	s.rows[collection] = append(s.rows[collection], row.clone())
	return nil
}

func (s *MemoryStore) UpdateOne(ctx context.Context, collection string, q Query, p Patch) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[collection]
	for i, r := range rows {
		ok, err := q.Matches(r)
		if err != nil {
			return Row{}, err
		}
		if !ok {
			continue
		}
		updated, err := applyPatch(r, p)
		if err != nil {
			return Row{}, err
		}
		if err := s.checkUnique(collection, updated, r.Meta.ID); err != nil {
			return Row{}, err
		}
		rows[i] = updated
		return updated.clone(), nil
	}
	return Row{}, ErrNotFound
}

func applyPatch(r Row, p Patch) (Row, error) {
	out := r.clone()
	if len(p.Set) > 0 {
		body, err := decodeBody(r.Body)
		if err != nil {
			return Row{}, err
		}
		for k, v := range p.Set {
			body[k] = v
		}
		b, err := json.Marshal(body)
		if err != nil {
			return Row{}, fmt.Errorf("store: encode body: %w", err)
		}
		out.Body = b
	}
	if p.Lifecycle != nil {
		out.Meta.Lifecycle = *p.Lifecycle
	}
	if !p.LastUpdated.IsZero() {
		out.Meta.LastUpdated = p.LastUpdated
		out.Meta.LastUpdatedBy = p.LastUpdatedBy
	}
	return out, nil
}

// checkUnique must be called with s.mu held. skipID excludes the row being
// replaced by an update.
func (s *MemoryStore) checkUnique(collection string, row Row, skipID string) error {
	for _, idx := range s.uniques[collection] {
		in, err := idx.Where.Matches(row)
		if err != nil {
			return err
		}
		if !in {
			continue
		}
		key, err := uniqueKey(row, idx.Fields)
		if err != nil {
			return err
		}
		for _, other := range s.rows[collection] {
			if other.Meta.ID == skipID || other.Meta.ID == row.Meta.ID {
				continue
			}
			ok, err := idx.Where.Matches(other)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			otherKey, err := uniqueKey(other, idx.Fields)
			if err != nil {
				return err
			}
			if slices.Equal(key, otherKey) {
				return fmt.Errorf("%w: %s", ErrConflict, idx.Name)
			}
		}
	}
	return nil
}

func uniqueKey(r Row, fields []string) ([]string, error) {
	key := make([]string, len(fields))
	var body map[string]any
	for i, f := range fields {
		if name, ok := dataField(f); ok {
			if body == nil {
				b, err := decodeBody(r.Body)
				if err != nil {
					return nil, err
				}
				body = b
			}
			key[i] = TextValue(body[name])
			continue
		}
		v, ok := metaValue(r.Meta, f)
		if !ok {
			return nil, fmt.Errorf("store: unknown field %q", f)
		}
		key[i] = v
	}
	return key, nil
}
