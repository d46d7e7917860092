package audit

import (
	"context"
	"database/sql"
	"fmt"

	"dashboard-platform/pkg/utils"
)

// PostgresRepo appends to audit_events. UPDATE and DELETE are rejected by a
// trigger installed in EnsureSchema.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
  id            TEXT PRIMARY KEY,
  tenant_id     TEXT        NOT NULL,
  type          TEXT        NOT NULL,
  actor_user_id TEXT,
  actor_role    TEXT,
  ip_address    TEXT,
  target_kind   TEXT,
  target_id     TEXT,
  message       TEXT,
  metadata      JSONB,
  created_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS audit_events_tenant_idx ON audit_events (tenant_id, created_at)`,
	`CREATE OR REPLACE FUNCTION audit_events_append_only() RETURNS trigger AS $$
BEGIN
  RAISE EXCEPTION 'audit_events is append-only';
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS audit_events_append_only ON audit_events`,
	`CREATE TRIGGER audit_events_append_only BEFORE UPDATE OR DELETE ON audit_events
  FOR EACH ROW EXECUTE FUNCTION audit_events_append_only()`,
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithSchemaLock(ctx, r.db, "audit_events", func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("audit schema: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, tenant_id, type, actor_user_id, actor_role, ip_address,
  target_kind, target_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	var meta any
	if len(e.Metadata) > 0 {
		meta = []byte(e.Metadata)
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.TenantID, string(e.Type),
		nullIfEmpty(e.ActorUserID), nullIfEmpty(e.ActorRole), nullIfEmpty(e.IPAddress),
		nullIfEmpty(e.TargetKind), nullIfEmpty(e.TargetID), nullIfEmpty(e.Message),
		meta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
