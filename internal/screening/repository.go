package screening

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("screening: not found")

// Repository is the record store contract for screening calls.
type Repository interface {
	Get(ctx context.Context, id string) (Call, error)
	Put(ctx context.Context, c Call) error
	List(ctx context.Context, f Filter) ([]Call, error)
}

// PostgresRepo stores screening calls in Postgres.
//
// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE screening_calls (
//	  id             TEXT PRIMARY KEY,
//	  application_id TEXT NOT NULL,
//	  status         TEXT NOT NULL,
//	  transcript     TEXT NULL,
//	  error_message  TEXT NULL,
//	  summary        JSONB NULL,
//	  attempt        INT NOT NULL,
//	  processed_at   TIMESTAMPTZ NULL,
//	  created_at     TIMESTAMPTZ NOT NULL,
//	  updated_at     TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX screening_calls_application_idx ON screening_calls (application_id);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, id string) (Call, error) {
	const q = `
SELECT id, application_id, status, transcript, error_message, summary, attempt, processed_at, created_at, updated_at
FROM screening_calls
WHERE id = $1
`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Put(ctx context.Context, c Call) error {
	if c.ID == "" {
		return errors.New("screening: id required")
	}
	var summary []byte
	if c.Summary != nil {
		b, err := json.Marshal(c.Summary)
		if err != nil {
			return fmt.Errorf("screening: encode summary: %w", err)
		}
		summary = b
	}

	const q = `
INSERT INTO screening_calls (
  id, application_id, status, transcript, error_message, summary, attempt, processed_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (id)
DO UPDATE SET status = EXCLUDED.status,
              transcript = EXCLUDED.transcript,
              error_message = EXCLUDED.error_message,
              summary = EXCLUDED.summary,
              processed_at = EXCLUDED.processed_at,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.ApplicationID,
		c.Status,
		nullString(c.Transcript),
		nullString(c.ErrorMessage),
		summary,
		c.Attempt,
		nullTime(c.ProcessedAt),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Call, error) {
	var (
		where []string
		args  []any
	)
	if f.ApplicationID != "" {
		args = append(args, f.ApplicationID)
		where = append(where, fmt.Sprintf("application_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := `
SELECT id, application_id, status, transcript, error_message, summary, attempt, processed_at, created_at, updated_at
FROM screening_calls`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c            Call
		transcript   sql.NullString
		errorMessage sql.NullString
		summary      []byte
		processedAt  sql.NullTime
	)
	if err := row.Scan(
		&c.ID,
		&c.ApplicationID,
		&c.Status,
		&transcript,
		&errorMessage,
		&summary,
		&c.Attempt,
		&processedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Call{}, err
	}
	if transcript.Valid {
		c.Transcript = &transcript.String
	}
	if errorMessage.Valid {
		c.ErrorMessage = &errorMessage.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		c.ProcessedAt = &t
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &c.Summary); err != nil {
			return Call{}, fmt.Errorf("screening: decode summary: %w", err)
		}
	}
	return c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
