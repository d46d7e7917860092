package store

// Collections known to the schema.
const (
	CollectionDocuments   = "documents"
	CollectionUsers       = "users"
	CollectionMemberships = "memberships"
	CollectionExecutions  = "executions"
	CollectionWorkflows   = "workflows"
)

// MembershipStatusActive mirrors the membership body value the unique index
// is conditioned on.
const MembershipStatusActive = "active"

// At most one active membership per (user, tenant).
func defaultUniqueIndexes() map[string][]UniqueIndex {
	return map[string][]UniqueIndex{
		CollectionMemberships: {{
			Name:   "memberships_one_active_idx",
			Fields: []string{FieldTenantID, Data("userId")},
			Where: Where(
				Eq(FieldState, StateActive),
				Eq(Data("status"), MembershipStatusActive),
			),
		}},
	}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS records (
  collection      TEXT        NOT NULL,
  id              TEXT        NOT NULL,
  tenant_id       TEXT        NOT NULL,
  state           TEXT        NOT NULL DEFAULT 'active',
  deleted_at      TIMESTAMPTZ,
  deleted_by      TEXT,
  created_date    TIMESTAMPTZ NOT NULL,
  created_by      TEXT        NOT NULL DEFAULT '',
  last_updated    TIMESTAMPTZ,
  last_updated_by TEXT,
  body            JSONB       NOT NULL DEFAULT '{}'::jsonb,
  PRIMARY KEY (collection, id)
)`,
	`CREATE INDEX IF NOT EXISTS records_tenant_idx ON records (collection, tenant_id, state, created_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS memberships_one_active_idx
  ON records (tenant_id, (body->>'userId'))
  WHERE collection = 'memberships' AND state = 'active' AND body->>'status' = 'active'`,
	`CREATE INDEX IF NOT EXISTS memberships_user_idx
  ON records ((body->>'userId'))
  WHERE collection = 'memberships'`,
	// tenant_id is the isolation key; it never changes once written.
	`CREATE OR REPLACE FUNCTION records_tenant_immutable() RETURNS trigger AS $$
BEGIN
  IF NEW.tenant_id <> OLD.tenant_id THEN
    RAISE EXCEPTION 'tenant_id is immutable';
  END IF;
  RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS records_tenant_immutable ON records`,
	`CREATE TRIGGER records_tenant_immutable BEFORE UPDATE ON records
  FOR EACH ROW EXECUTE FUNCTION records_tenant_immutable()`,
}
