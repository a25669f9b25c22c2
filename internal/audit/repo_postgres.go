package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresRepo stores audit events in Postgres.
//
// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE audit_events (
//	  id                TEXT PRIMARY KEY,
//	  type              TEXT NOT NULL,
//	  application_id    TEXT NOT NULL,
//	  screening_call_id TEXT NULL,
//	  actor_user_id     TEXT NULL,
//	  actor_role        TEXT NULL,
//	  message           TEXT NULL,
//	  metadata          JSONB NULL,
//	  created_at        TIMESTAMPTZ NOT NULL
//	);
//
// Grant INSERT and SELECT only; there is no UPDATE or DELETE path.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var meta []byte
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("audit: encode metadata: %w", err)
		}
		meta = b
	}

	const q = `
INSERT INTO audit_events (
  id, type, application_id, screening_call_id, actor_user_id, actor_role, message, metadata, created_at
) VALUES (
  $1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ApplicationID,
		e.ScreeningCallID,
		e.ActorUserID,
		e.ActorRole,
		e.Message,
		meta,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.ApplicationID != "" {
		args = append(args, f.ApplicationID)
		where = append(where, fmt.Sprintf("application_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	q := `
SELECT id, type, application_id, COALESCE(screening_call_id,''), COALESCE(actor_user_id,''),
       COALESCE(actor_role,''), COALESCE(message,''), metadata, created_at
FROM audit_events`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var (
			e    Event
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.ApplicationID, &e.ScreeningCallID, &e.ActorUserID,
			&e.ActorRole, &e.Message, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
