package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard-platform/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresStore keeps every collection in the single records table.
// Metadata lives in columns; record-specific fields live in the jsonb body.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the records table, its indexes and triggers. Concurrent
// callers serialize on a schema lock.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return utils.WithSchemaLock(ctx, s.db, "records", func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		return nil
	})
}

const selectColumns = `id, tenant_id, state, deleted_at, deleted_by, created_date, created_by, last_updated, last_updated_by, body`

func (s *PostgresStore) Find(ctx context.Context, collection string, q Query, opts FindOptions) ([]Row, error) {
	args := []any{collection}
	where, args, err := whereClause(q, args)
	if err != nil {
		return nil, err
	}

	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	stmt := fmt.Sprintf(`SELECT %s FROM records WHERE collection = $1%s ORDER BY created_date %s, id %s`,
		selectColumns, where, dir, dir)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		stmt += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		stmt += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", collection, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, row Row) error {
	const q = `
INSERT INTO records (
  collection, id, tenant_id, state, deleted_at, deleted_by,
  created_date, created_by, last_updated, last_updated_by, body
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	m := row.Meta
	body := row.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	state := m.Lifecycle.State
	if state == "" {
		state = StateActive
	}
	_, err := s.db.ExecContext(ctx, q,
		collection,
		m.ID,
		m.TenantID,
		string(state),
		nullTime(m.Lifecycle.At),
		nullString(m.Lifecycle.By),
		m.CreatedDate,
		m.CreatedBy,
		nullTime(m.LastUpdated),
		nullString(m.LastUpdatedBy),
		[]byte(body),
	)
	if err != nil {
		return mapError(fmt.Errorf("insert %s: %w", collection, err))
	}
	return nil
}

func (s *PostgresStore) UpdateOne(ctx context.Context, collection string, q Query, p Patch) (Row, error) {
	args := []any{collection}
	where, args, err := whereClause(q, args)
	if err != nil {
		return Row{}, err
	}

	var sets []string
	if len(p.Set) > 0 {
		b, err := json.Marshal(p.Set)
		if err != nil {
			return Row{}, fmt.Errorf("update %s: encode patch: %w", collection, err)
		}
		args = append(args, b)
		sets = append(sets, fmt.Sprintf("body = body || $%d::jsonb", len(args)))
	}
	if p.Lifecycle != nil {
		args = append(args, string(p.Lifecycle.State), nullTime(p.Lifecycle.At), nullString(p.Lifecycle.By))
		n := len(args)
		sets = append(sets, fmt.Sprintf("state = $%d, deleted_at = $%d, deleted_by = $%d", n-2, n-1, n))
	}
	if !p.LastUpdated.IsZero() {
		args = append(args, p.LastUpdated, p.LastUpdatedBy)
		n := len(args)
		sets = append(sets, fmt.Sprintf("last_updated = $%d, last_updated_by = $%d", n-1, n))
	}
	if len(sets) == 0 {
		return Row{}, fmt.Errorf("update %s: empty patch", collection)
	}

	stmt := fmt.Sprintf(`
UPDATE records SET %s
WHERE collection = $1 AND id = (
  SELECT id FROM records WHERE collection = $1%s
  ORDER BY created_date, id
  LIMIT 1
  FOR UPDATE
)
RETURNING %s`, strings.Join(sets, ", "), where, selectColumns)

	r, err := scanRow(s.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Row{}, ErrNotFound
		}
		return Row{}, mapError(fmt.Errorf("update %s: %w", collection, err))
	}
	return r, nil
}

var columns = map[string]string{
	FieldID:            "id",
	FieldTenantID:      "tenant_id",
	FieldState:         "state",
	FieldCreatedDate:   "created_date",
	FieldCreatedBy:     "created_by",
	FieldLastUpdated:   "last_updated",
	FieldLastUpdatedBy: "last_updated_by",
	FieldDeletedBy:     "deleted_by",
}

// whereClause renders q as " AND ..." conjuncts with positional parameters
// appended to args. Data field names are bound as parameters too.
func whereClause(q Query, args []any) (string, []any, error) {
	var b strings.Builder
	for _, p := range q.preds {
		var lhs string
		if name, ok := dataField(p.Field); ok {
			args = append(args, name)
			lhs = fmt.Sprintf("body->>($%d::text)", len(args))
		} else {
			col, ok := columns[p.Field]
			if !ok {
				return "", nil, fmt.Errorf("store: unknown field %q", p.Field)
			}
			lhs = col
		}

		b.WriteString(" AND ")
		switch p.Op {
		case OpEq:
			args = append(args, sqlValue(p.Field, p.Value))
			fmt.Fprintf(&b, "%s = $%d", lhs, len(args))
		case OpNe:
			args = append(args, sqlValue(p.Field, p.Value))
			fmt.Fprintf(&b, "%s IS DISTINCT FROM $%d", lhs, len(args))
		case OpIn:
			args = append(args, p.Values)
			fmt.Fprintf(&b, "%s = ANY($%d)", lhs, len(args))
		default:
			return "", nil, fmt.Errorf("store: unsupported op %q", p.Op)
		}
	}
	return b.String(), args, nil
}

// Timestamp columns keep their native type; everything else compares as text.
func sqlValue(field string, v any) any {
	if field == FieldCreatedDate || field == FieldLastUpdated {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return TextValue(v)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (Row, error) {
	var (
		r             Row
		state         string
		deletedAt     sql.NullTime
		deletedBy     sql.NullString
		lastUpdated   sql.NullTime
		lastUpdatedBy sql.NullString
		body          []byte
	)
	if err := sc.Scan(
		&r.Meta.ID,
		&r.Meta.TenantID,
		&state,
		&deletedAt,
		&deletedBy,
		&r.Meta.CreatedDate,
		&r.Meta.CreatedBy,
		&lastUpdated,
		&lastUpdatedBy,
		&body,
	); err != nil {
		return Row{}, err
	}
	r.Meta.Lifecycle = Lifecycle{State: State(state), At: deletedAt.Time, By: deletedBy.String}
	r.Meta.LastUpdated = lastUpdated.Time
	r.Meta.LastUpdatedBy = lastUpdatedBy.String
	r.Body = body
	return r, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
