package store

import (
	"encoding/json"
	"testing"
	"time"
)

func row(id, tenant string, body string) Row {
	return Row{
		Meta: Meta{ID: id, TenantID: tenant, Lifecycle: Active(), CreatedDate: time.Unix(1700000000, 0).UTC()},
		Body: json.RawMessage(body),
	}
}

func TestQueryAndDoesNotModifyReceiver(t *testing.T) {
	base := Where(Eq(FieldID, "a"))
	_ = base.And(Eq(FieldTenantID, "t1"))
	if base.Len() != 1 {
		t.Fatalf("receiver modified: %s", base)
	}
}

func TestInCopiesValues(t *testing.T) {
	vals := []string{"t2", "t1"}
	p := In(FieldTenantID, vals)
	vals[0] = "evil"
	if p.Values[0] != "t1" || p.Values[1] != "t2" {
		t.Fatalf("expected sorted private copy, got %v", p.Values)
	}
}

func TestWithSkipsEqualPredicate(t *testing.T) {
	q := Where(In(FieldTenantID, []string{"a", "b"}))
	q2 := q.With(In(FieldTenantID, []string{"b", "a"}))
	if !q.Equal(q2) {
		t.Fatalf("expected equal queries: %s vs %s", q, q2)
	}
}

func TestMatches(t *testing.T) {
	r := row("d1", "t1", `{"type":"invoice","pages":3,"archived":false}`)

	cases := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty", Query{}, true},
		{"meta eq", Where(Eq(FieldTenantID, "t1")), true},
		{"meta eq miss", Where(Eq(FieldTenantID, "t2")), false},
		{"data eq", Where(Eq(Data("type"), "invoice")), true},
		{"data number", Where(Eq(Data("pages"), 3)), true},
		{"data bool", Where(Eq(Data("archived"), false)), true},
		{"ne missing field", Where(Ne(Data("nope"), "x")), true},
		{"state ne deleted", Where(Ne(FieldState, StateDeleted)), true},
		{"in", Where(In(FieldTenantID, []string{"t0", "t1"})), true},
		{"in miss", Where(In(FieldTenantID, []string{"t2"})), false},
		{"in empty set", Where(In(FieldTenantID, nil)), false},
		{"conjunction", Where(Eq(Data("type"), "invoice"), In(FieldTenantID, []string{"t2"})), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.q.Matches(r)
			if err != nil {
				t.Fatalf("matches: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v for %s", tc.want, tc.q)
			}
		})
	}
}

func TestMatchesUnknownField(t *testing.T) {
	if _, err := Where(Eq("bogus", "x")).Matches(row("d1", "t1", `{}`)); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestMetaJSONShape(t *testing.T) {
	at := time.Unix(1700000100, 0).UTC()
	m := Meta{ID: "d1", TenantID: "t1", Lifecycle: DeletedBy("u1", at), CreatedDate: at, CreatedBy: "u0"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["deleted"] != true || out["deleted_by"] != "u1" || out["tenantId"] != "t1" {
		t.Fatalf("unexpected shape: %s", b)
	}

	var back Meta
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if !back.Lifecycle.Deleted() || back.Lifecycle.By != "u1" || !back.Lifecycle.At.Equal(at) {
		t.Fatalf("lifecycle not restored: %+v", back.Lifecycle)
	}
}
