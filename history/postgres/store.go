// Package postgres stores consultation records in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamdynS/heartcrew/history"
)

const schema = `CREATE TABLE IF NOT EXISTS %s (
  id text PRIMARY KEY,
  created_at timestamptz NOT NULL,
  patient_data text NOT NULL,
  prediction jsonb,
  diagnosis text NOT NULL DEFAULT '',
  treatment text NOT NULL DEFAULT '',
  tasks jsonb NOT NULL DEFAULT '[]',
  error text NOT NULL DEFAULT ''
)`

type Store struct {
	pool  *pgxpool.Pool
	table string
}

// New wraps an existing pool. An empty table defaults to "consultations".
func New(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = "consultations"
	}
	return &Store{pool: pool, table: table}
}

// Open connects to url and creates the table if needed.
func Open(ctx context.Context, url, table string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s := New(pool, table)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(schema, pgx.Identifier{s.table}.Sanitize())); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Save(ctx context.Context, r *history.Record) error {
	if r == nil || r.ID == "" {
		return errors.New("history: record needs an id")
	}
	var pred []byte
	if r.Prediction != nil {
		b, err := json.Marshal(r.Prediction)
		if err != nil {
			return err
		}
		pred = b
	}
	tasks, err := json.Marshal(r.Tasks)
	if err != nil {
		return err
	}
	if r.Tasks == nil {
		tasks = []byte("[]")
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, created_at, patient_data, prediction, diagnosis, treatment, tasks, error)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET prediction=excluded.prediction, diagnosis=excluded.diagnosis,
  treatment=excluded.treatment, tasks=excluded.tasks, error=excluded.error`, pgx.Identifier{s.table}.Sanitize())
	_, err = s.pool.Exec(ctx, q, r.ID, r.CreatedAt, r.PatientData, pred, r.Diagnosis, r.Treatment, tasks, r.Error)
	return err
}

const columns = "id, created_at, patient_data, prediction, diagnosis, treatment, tasks, error"

func (s *Store) Get(ctx context.Context, id string) (*history.Record, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", columns, pgx.Identifier{s.table}.Sanitize()), id)
	r, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	return r, err
}

func (s *Store) List(ctx context.Context, limit int) ([]*history.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC, id", columns, pgx.Identifier{s.table}.Sanitize())
	args := []any{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*history.Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scan(row pgx.Row) (*history.Record, error) {
	var (
		r     history.Record
		pred  []byte
		tasks []byte
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.PatientData, &pred, &r.Diagnosis, &r.Treatment, &tasks, &r.Error); err != nil {
		return nil, err
	}
	if len(pred) > 0 {
		r.Prediction = &history.Prediction{}
		if err := json.Unmarshal(pred, r.Prediction); err != nil {
			return nil, fmt.Errorf("decode prediction: %w", err)
		}
	}
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &r.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

var _ history.Store = (*Store)(nil)
