package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hiring-pipeline/pkg/utils"
)

var (
	ErrNotFound = errors.New("applications: not found")
	// ErrStaleWrite is returned when a Put would drop timeline entries already stored.
	ErrStaleWrite = errors.New("applications: stale write")
)

// Repository is the record store contract for applications.
// It guarantees single-record read-modify-write atomicity only; callers serialise
// writes to the same application themselves.
type Repository interface {
	Get(ctx context.Context, id string) (Application, error)
	Put(ctx context.Context, a Application) error
	List(ctx context.Context, f Filter) ([]Application, error)
}

// PostgresRepo stores applications in Postgres.
//
// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE applications (
//	  id           TEXT PRIMARY KEY,
//	  candidate_id TEXT NOT NULL,
//	  job_id       TEXT NOT NULL,
//	  status       TEXT NOT NULL,
//	  current_step TEXT NOT NULL,
//	  timeline     JSONB NOT NULL,
//	  created_at   TIMESTAMPTZ NOT NULL,
//	  updated_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, id string) (Application, error) {
	const q = `
SELECT id, candidate_id, job_id, status, current_step, timeline, created_at, updated_at
FROM applications
WHERE id = $1
`
	a, err := scanApplication(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return a, nil
}

func (r *PostgresRepo) Put(ctx context.Context, a Application) error {
	if a.ID == "" {
		return errors.New("applications: id required")
	}
	timeline, err := json.Marshal(a.Timeline)
	if err != nil {
		return fmt.Errorf("applications: encode timeline: %w", err)
	}

	// The row lock keeps the length check and the write atomic; the timeline
	// may only grow.
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var stored int
		err := tx.QueryRowContext(ctx,
			`SELECT jsonb_array_length(timeline) FROM applications WHERE id = $1 FOR UPDATE`, a.ID,
		).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		case stored > len(a.Timeline):
			return fmt.Errorf("%w: %s has %d entries, write has %d", ErrStaleWrite, a.ID, stored, len(a.Timeline))
		}

		const q = `
INSERT INTO applications (id, candidate_id, job_id, status, current_step, timeline, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id)
DO UPDATE SET status = EXCLUDED.status,
              current_step = EXCLUDED.current_step,
              timeline = EXCLUDED.timeline,
              updated_at = EXCLUDED.updated_at
`
		_, err = tx.ExecContext(ctx, q,
			a.ID,
			a.CandidateID,
			a.JobID,
			a.Status,
			a.CurrentStep,
			timeline,
			a.CreatedAt,
			a.UpdatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Application, error) {
	var (
		where []string
		args  []any
	)
	if f.CandidateID != "" {
		args = append(args, f.CandidateID)
		where = append(where, fmt.Sprintf("candidate_id = $%d", len(args)))
	}
	if f.JobID != "" {
		args = append(args, f.JobID)
		where = append(where, fmt.Sprintf("job_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := `
SELECT id, candidate_id, job_id, status, current_step, timeline, created_at, updated_at
FROM applications`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var (
		a        Application
		timeline []byte
	)
	if err := row.Scan(
		&a.ID,
		&a.CandidateID,
		&a.JobID,
		&a.Status,
		&a.CurrentStep,
		&timeline,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Application{}, err
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &a.Timeline); err != nil {
			return Application{}, fmt.Errorf("applications: decode timeline: %w", err)
		}
	}
	return a, nil
}
