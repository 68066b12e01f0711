package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists triage sessions, turns and audit events in
// PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			age INTEGER,
			sex TEXT,
			medical_history TEXT NOT NULL DEFAULT '[]',
			medications TEXT NOT NULL DEFAULT '[]',
			allergies TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'active',
			turn_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			turn_number INTEGER NOT NULL,
			user_message TEXT NOT NULL,
			assessment TEXT NOT NULL,
			severity INTEGER,
			urgency_level TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (session_id, turn_number)
		);`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			urgency_level TEXT,
			detected_keywords TEXT,
			confidence_scores TEXT,
			metadata TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns (session_id, turn_number);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_logs (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, rec SessionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	history, _ := json.Marshal(orEmpty(rec.MedicalHistory))
	meds, _ := json.Marshal(orEmpty(rec.Medications))
	allergies, _ := json.Marshal(orEmpty(rec.Allergies))

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, age, sex, medical_history, medications, allergies, status, turn_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		rec.ID, rec.Age, rec.Sex, string(history), string(meds), string(allergies),
		rec.Status, rec.TurnCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, sessionID, status string, turnCount int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET status=$2, turn_count=$3, updated_at=now() WHERE id=$1`,
		sessionID, status, turnCount,
	)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, rec TurnRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	assessment, err := json.Marshal(rec.Assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (id, session_id, turn_number, user_message, assessment, severity, urgency_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.SessionID, rec.TurnNumber, rec.UserMessage, string(assessment),
		rec.Severity, rec.Urgency, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, sessionID string) (SessionRecord, []TurnRecord, error) {
	var (
		rec                    SessionRecord
		history, meds, allergy string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, age, sex, medical_history, medications, allergies, status, turn_count, created_at, updated_at
		 FROM sessions WHERE id=$1`, sessionID,
	).Scan(&rec.ID, &rec.Age, &rec.Sex, &history, &meds, &allergy, &rec.Status, &rec.TurnCount, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRecord{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, nil, fmt.Errorf("query session: %w", err)
	}
	_ = json.Unmarshal([]byte(history), &rec.MedicalHistory)
	_ = json.Unmarshal([]byte(meds), &rec.Medications)
	_ = json.Unmarshal([]byte(allergy), &rec.Allergies)

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, turn_number, user_message, assessment, severity, urgency_level, created_at
		 FROM conversation_turns WHERE session_id=$1 ORDER BY turn_number`, sessionID,
	)
	if err != nil {
		return SessionRecord{}, nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var (
			t          TurnRecord
			assessment string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.UserMessage, &assessment, &t.Severity, &t.Urgency, &t.Timestamp); err != nil {
			return SessionRecord{}, nil, fmt.Errorf("scan turn row: %w", err)
		}
		if err := json.Unmarshal([]byte(assessment), &t.Assessment); err != nil {
			return SessionRecord{}, nil, fmt.Errorf("decode stored assessment: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return SessionRecord{}, nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	return rec, turns, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, rec AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	keywords, _ := json.Marshal(orEmpty(rec.DetectedKeywords))
	scores, _ := json.Marshal(rec.ConfidenceScores)
	metadata, _ := json.Marshal(rec.Metadata)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, session_id, event_type, urgency_level, detected_keywords, confidence_scores, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.SessionID, rec.EventType, rec.Urgency,
		string(keywords), string(scores), string(metadata), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
