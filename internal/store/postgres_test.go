package store

import (
	"testing"
)

func TestWhereClauseRendersParameters(t *testing.T) {
	q := Where(
		Eq(Data("type"), "invoice"),
		Ne(FieldState, StateDeleted),
		In(FieldTenantID, []string{"t2", "t1"}),
	)
	where, args, err := whereClause(q, []any{"documents"})
	if err != nil {
		t.Fatalf("where: %v", err)
	}
	want := " AND body->>($2::text) = $3 AND state IS DISTINCT FROM $4 AND tenant_id = ANY($5)"
	if where != want {
		t.Fatalf("unexpected where:\n got %q\nwant %q", where, want)
	}
	if len(args) != 5 || args[1] != "type" || args[2] != "invoice" || args[3] != "deleted" {
		t.Fatalf("unexpected args: %#v", args)
	}
	tenants, ok := args[4].([]string)
	if !ok || len(tenants) != 2 || tenants[0] != "t1" {
		t.Fatalf("unexpected tenant arg: %#v", args[4])
	}
}

func TestWhereClauseRejectsUnknownField(t *testing.T) {
	if _, _, err := whereClause(Where(Eq("tenant_id; DROP TABLE records", "x")), nil); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
