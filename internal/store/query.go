package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Metadata field names usable in predicates.
const (
	FieldID            = "id"
	FieldTenantID      = "tenantId"
	FieldState         = "state"
	FieldCreatedDate   = "created_date"
	FieldCreatedBy     = "created_by"
	FieldLastUpdated   = "last_updated"
	FieldLastUpdatedBy = "last_updated_by"
	FieldDeletedBy     = "deleted_by"
)

const dataPrefix = "data."

// Data addresses a record-specific field stored in the row body.
func Data(name string) string { return dataPrefix + name }

func dataField(field string) (string, bool) {
	if strings.HasPrefix(field, dataPrefix) && len(field) > len(dataPrefix) {
		return field[len(dataPrefix):], true
	}
	return "", false
}

type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpIn Op = "in"
)

// Predicate is one conjunct of a Query. Values is only used by OpIn.
type Predicate struct {
	Field  string
	Op     Op
	Value  any
	Values []string
}

func Eq(field string, v any) Predicate { return Predicate{Field: field, Op: OpEq, Value: v} }

func Ne(field string, v any) Predicate { return Predicate{Field: field, Op: OpNe, Value: v} }

// In matches when the field equals one of values. The set is copied and
// sorted, so two In predicates over the same set compare equal.
func In(field string, values []string) Predicate {
	vs := slices.Clone(values)
	slices.Sort(vs)
	vs = slices.Compact(vs)
	return Predicate{Field: field, Op: OpIn, Values: vs}
}

func (p Predicate) Equal(o Predicate) bool {
	if p.Field != o.Field || p.Op != o.Op {
		return false
	}
	if p.Op == OpIn {
		return slices.Equal(p.Values, o.Values)
	}
	return TextValue(p.Value) == TextValue(o.Value)
}

func (p Predicate) String() string {
	if p.Op == OpIn {
		return fmt.Sprintf("%s in [%s]", p.Field, strings.Join(p.Values, ","))
	}
	return fmt.Sprintf("%s %s %s", p.Field, p.Op, TextValue(p.Value))
}

// Query is an immutable conjunction of predicates. Every method returns a
// new Query; the receiver is never modified.
type Query struct {
	preds []Predicate
}

func Where(preds ...Predicate) Query {
	return Query{}.And(preds...)
}

func (q Query) And(preds ...Predicate) Query {
	out := make([]Predicate, 0, len(q.preds)+len(preds))
	out = append(out, q.preds...)
	out = append(out, preds...)
	return Query{preds: out}
}

// With conjuncts p unless an equal predicate is already present.
func (q Query) With(p Predicate) Query {
	if q.Has(p) {
		return q
	}
	return q.And(p)
}

func (q Query) Has(p Predicate) bool {
	for _, x := range q.preds {
		if x.Equal(p) {
			return true
		}
	}
	return false
}

func (q Query) Predicates() []Predicate { return slices.Clone(q.preds) }

func (q Query) Len() int { return len(q.preds) }

func (q Query) Equal(o Query) bool {
	return slices.EqualFunc(q.preds, o.preds, Predicate.Equal)
}

func (q Query) String() string {
	parts := make([]string, len(q.preds))
	for i, p := range q.preds {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}

// Matches evaluates q against a row. Data fields compare by their JSON text.
func (q Query) Matches(r Row) (bool, error) {
	var body map[string]any
	for _, p := range q.preds {
		var (
			val     string
			present bool
		)
		if name, ok := dataField(p.Field); ok {
			if body == nil {
				decoded, err := decodeBody(r.Body)
				if err != nil {
					return false, err
				}
				body = decoded
			}
			v, ok := body[name]
			val, present = TextValue(v), ok && v != nil
		} else {
			v, ok := metaValue(r.Meta, p.Field)
			if !ok {
				return false, fmt.Errorf("store: unknown field %q", p.Field)
			}
			val, present = v, true
		}
		if !evaluate(p, val, present) {
			return false, nil
		}
	}
	return true, nil
}

func evaluate(p Predicate, val string, present bool) bool {
	switch p.Op {
	case OpEq:
		return present && val == TextValue(p.Value)
	case OpNe:
		return !present || val != TextValue(p.Value)
	case OpIn:
		if !present {
			return false
		}
		_, found := slices.BinarySearch(p.Values, val)
		return found
	default:
		return false
	}
}

func metaValue(m Meta, field string) (string, bool) {
	switch field {
	case FieldID:
		return m.ID, true
	case FieldTenantID:
		return m.TenantID, true
	case FieldState:
		return string(m.Lifecycle.State), true
	case FieldCreatedDate:
		return TextValue(m.CreatedDate), true
	case FieldCreatedBy:
		return m.CreatedBy, true
	case FieldLastUpdated:
		return TextValue(m.LastUpdated), true
	case FieldLastUpdatedBy:
		return m.LastUpdatedBy, true
	case FieldDeletedBy:
		return m.Lifecycle.By, true
	default:
		return "", false
	}
}

func decodeBody(b json.RawMessage) (map[string]any, error) {
	out := map[string]any{}
	if len(b) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("store: decode body: %w", err)
	}
	return out, nil
}

// TextValue renders v the way Postgres renders a jsonb scalar with ->>.
func TextValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case State:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
