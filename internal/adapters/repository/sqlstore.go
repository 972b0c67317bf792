package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// SQLStore persists the roster and answers in SQLite. Complex shapes
// (rounds, questions) travel as JSON payloads; queried fields get columns.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (and migrates) a SQLite store at path. Use ":memory:"
// for an ephemeral database.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS competitions (
	id           TEXT PRIMARY KEY,
	ref          TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 0,
	payload_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS teams (
	id             TEXT PRIMARY KEY,
	competition_id TEXT NOT NULL,
	payload_json   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS students (
	id             TEXT PRIMARY KEY,
	competition_id TEXT NOT NULL,
	payload_json   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS answers (
	id          TEXT PRIMARY KEY,
	question_id TEXT NOT NULL,
	student_id  TEXT NOT NULL DEFAULT '',
	team_id     TEXT NOT NULL DEFAULT '',
	value       REAL,
	UNIQUE(question_id, student_id, team_id)
);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveRoster stores the competition definition, marking it active and
// replacing any previous roster rows for the same competition.
func (s *SQLStore) SaveRoster(ctx context.Context, roster *model.Roster) error {
	comp := roster.Competition()
	payload, err := json.Marshal(comp)
	if err != nil {
		return fmt.Errorf("marshal competition: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE competitions SET active = 0`); err != nil {
		return fmt.Errorf("deactivate competitions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO competitions (id, ref, active, payload_json) VALUES (?, ?, 1, ?)
		 ON CONFLICT (id) DO UPDATE SET ref = excluded.ref, active = 1, payload_json = excluded.payload_json`,
		comp.ID, comp.Ref, string(payload)); err != nil {
		return fmt.Errorf("upsert competition: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE competition_id = ?`, comp.ID); err != nil {
		return fmt.Errorf("clear teams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE competition_id = ?`, comp.ID); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}
	for _, t := range roster.Teams() {
		tp, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal team: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, competition_id, payload_json) VALUES (?, ?, ?)`,
			t.ID, comp.ID, string(tp)); err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		for _, st := range roster.StudentsOfTeam(t.ID) {
			sp, err := json.Marshal(st)
			if err != nil {
				return fmt.Errorf("marshal student: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO students (id, competition_id, payload_json) VALUES (?, ?, ?)`,
				st.ID, comp.ID, string(sp)); err != nil {
				return fmt.Errorf("insert student: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadRoster reads the active competition's roster.
func (s *SQLStore) LoadRoster(ctx context.Context) (*model.Roster, error) {
	var compID, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, payload_json FROM competitions WHERE active = 1 LIMIT 1`).Scan(&compID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveRoster
	}
	if err != nil {
		return nil, fmt.Errorf("load competition: %w", err)
	}
	var comp model.Competition
	if err := json.Unmarshal([]byte(payload), &comp); err != nil {
		return nil, fmt.Errorf("unmarshal competition: %w", err)
	}

	teams, err := loadPayloads[model.Team](ctx, s.db, `SELECT payload_json FROM teams WHERE competition_id = ?`, compID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	students, err := loadPayloads[model.Student](ctx, s.db, `SELECT payload_json FROM students WHERE competition_id = ?`, compID)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	return model.NewRoster(comp, teams, students)
}

func loadPayloads[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Answer returns the zero-or-one answer for a question/participant pair.
func (s *SQLStore) Answer(ctx context.Context, questionID string, ref model.ParticipantRef) (model.Answer, bool, error) {
	if !ref.Valid() {
		return model.Answer{}, false, ErrInvalidRef
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, value FROM answers WHERE question_id = ? AND student_id = ? AND team_id = ?`,
		questionID, ref.StudentID, ref.TeamID)
	var (
		id  string
		val sql.NullFloat64
	)
	err := row.Scan(&id, &val)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Answer{}, false, nil
	}
	if err != nil {
		return model.Answer{}, false, fmt.Errorf("query answer: %w", err)
	}
	a := model.Answer{ID: id, QuestionID: questionID, Participant: ref}
	if val.Valid {
		v := val.Float64
		a.Value = &v
	}
	return a, true, nil
}

// AnswersForQuestion returns all answers recorded for a question.
func (s *SQLStore) AnswersForQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryDuration(time.Since(start).Seconds()) }()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, team_id, value FROM answers WHERE question_id = ?`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	var out []model.Answer
	for rows.Next() {
		var (
			id, studentID, teamID string
			val                   sql.NullFloat64
		)
		if err := rows.Scan(&id, &studentID, &teamID, &val); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a := model.Answer{
			ID:          id,
			QuestionID:  questionID,
			Participant: model.ParticipantRef{StudentID: studentID, TeamID: teamID},
		}
		if val.Valid {
			v := val.Float64
			a.Value = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EnsureAnswer creates a blank row for the pair if none exists.
func (s *SQLStore) EnsureAnswer(ctx context.Context, questionID string, ref model.ParticipantRef) (model.Answer, error) {
	if !ref.Valid() {
		return model.Answer{}, ErrInvalidRef
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, student_id, team_id, value) VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT (question_id, student_id, team_id) DO NOTHING`,
		uuid.NewString(), questionID, ref.StudentID, ref.TeamID); err != nil {
		return model.Answer{}, fmt.Errorf("ensure answer: %w", err)
	}
	a, _, err := s.Answer(ctx, questionID, ref)
	return a, err
}

// SetValue records a score for the pair, creating the row if needed.
func (s *SQLStore) SetValue(ctx context.Context, questionID string, ref model.ParticipantRef, value *float64) error {
	if !ref.Valid() {
		return ErrInvalidRef
	}
	var val sql.NullFloat64
	if value != nil {
		val = sql.NullFloat64{Float64: *value, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, student_id, team_id, value) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (question_id, student_id, team_id) DO UPDATE SET value = excluded.value`,
		uuid.NewString(), questionID, ref.StudentID, ref.TeamID, val); err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// HasValue reports whether a graded answer exists for the pair.
func (s *SQLStore) HasValue(ctx context.Context, questionID string, ref model.ParticipantRef) (bool, error) {
	if !ref.Valid() {
		return false, ErrInvalidRef
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM answers WHERE question_id = ? AND student_id = ? AND team_id = ? AND value IS NOT NULL`,
		questionID, ref.StudentID, ref.TeamID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query has value: %w", err)
	}
	return n > 0, nil
}
