package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"agenticmd/pkg"
)

// ErrNotFound is returned when no consultation exists for an ID.
var ErrNotFound = errors.New("consultation not found")

// ConsultationRecord is the persisted form of one session. Snapshot is the
// serialized orchestrator state; Result is set once the workflow completes.
type ConsultationRecord struct {
	ID        string
	State     pkg.WorkflowState
	Stage     string
	Question  string
	Snapshot  []byte
	Result    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore persists consultation sessions between interactions. The
// HTTP layer saves after every mutation and restores on demand, so a
// suspended session survives process restarts.
type SessionStore interface {
	Save(ctx context.Context, rec *ConsultationRecord) error
	Load(ctx context.Context, id string) (*ConsultationRecord, error)
	List(ctx context.Context, limit int) ([]ConsultationRecord, error)
}

// Repository is the Postgres-backed SessionStore.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB. The
// caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Save upserts the record, refreshing updated_at.
func (r *Repository) Save(ctx context.Context, rec *ConsultationRecord) error {
	result := rec.Result
	if len(result) == 0 {
		result = nil
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO consultations (id, state, current_stage, pending_question, snapshot, result)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO UPDATE
         SET state = EXCLUDED.state,
             current_stage = EXCLUDED.current_stage,
             pending_question = EXCLUDED.pending_question,
             snapshot = EXCLUDED.snapshot,
             result = EXCLUDED.result,
             updated_at = NOW()`,
		rec.ID, rec.State, rec.Stage, rec.Question, rec.Snapshot, result,
	)
	return err
}

// Load fetches one consultation by ID.
func (r *Repository) Load(ctx context.Context, id string) (*ConsultationRecord, error) {
	var rec ConsultationRecord
	var result sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, state, current_stage, pending_question, snapshot, result, created_at, updated_at
         FROM consultations
         WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.State, &rec.Stage, &rec.Question, &rec.Snapshot, &result, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if result.Valid {
		rec.Result = []byte(result.String)
	}
	return &rec, nil
}

// List returns the most recently updated consultations, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]ConsultationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, state, current_stage, pending_question, snapshot, result, created_at, updated_at
         FROM consultations
         ORDER BY updated_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []ConsultationRecord
	for rows.Next() {
		var rec ConsultationRecord
		var result sql.NullString
		if err := rows.Scan(&rec.ID, &rec.State, &rec.Stage, &rec.Question, &rec.Snapshot, &result, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if result.Valid {
			rec.Result = []byte(result.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
