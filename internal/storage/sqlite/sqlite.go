// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk. There is no network
// and no separate server process, which makes it the default backend for
// local development and for the test suite (in-memory databases).
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// Compile-time proof that *SQLite satisfies the interface.
var _ storage.Storage = (*SQLite)(nil)

// Explicit column list shared by every SELECT. The order must match
// scanStudent.
const studentColumns = `id, name, email, phone_number, codeforces_handle,
	current_rating, max_rating, sync_time, sync_frequency, email_reminders,
	last_synced_at, reminder_count, last_reminder_sent, created_at, updated_at`

// New opens the SQLite database at cfg.StoragePath.
func New(cfg *config.Config) (*SQLite, error) {
	return Open(cfg.StoragePath)
}

// Open opens (or creates) the database at dsn and makes sure the students
// table exists. dsn may be a file path or a "file:...?mode=memory" URI.
func Open(dsn string) (*SQLite, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite.Open: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	// SQLite allows one writer at a time. A single connection turns
	// concurrent writes into a queue instead of "database is locked".
	db.SetMaxOpenConns(1)

	// The UNIQUE constraint on email is what enforces the uniqueness
	// invariant. Emails are lowercased before they get here, so the index
	// is effectively case-insensitive.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id                 TEXT      PRIMARY KEY,
			name               TEXT      NOT NULL,
			email              TEXT      NOT NULL UNIQUE,
			phone_number       TEXT      NOT NULL DEFAULT '',
			codeforces_handle  TEXT      NOT NULL DEFAULT '',
			current_rating     INTEGER   NOT NULL DEFAULT 0,
			max_rating         INTEGER   NOT NULL DEFAULT 0,
			sync_time          TEXT      NOT NULL DEFAULT '02:00',
			sync_frequency     TEXT      NOT NULL DEFAULT 'daily',
			email_reminders    BOOLEAN   NOT NULL DEFAULT 1,
			last_synced_at     TIMESTAMP NULL,
			reminder_count     INTEGER   NOT NULL DEFAULT 0,
			last_reminder_sent TIMESTAMP NULL,
			created_at         TIMESTAMP NOT NULL,
			updated_at         TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// now is truncated to milliseconds so values survive a round trip through
// either backend unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// CreateStudent inserts a new row. Placeholders (?) keep user input out of
// the SQL text.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	ts := now()
	student.ID = uuid.NewString()
	student.CreatedAt = ts
	student.UpdatedAt = ts

	_, err = stmt.ExecContext(ctx,
		student.ID,
		student.Name,
		student.Email,
		student.PhoneNumber,
		student.CodeforcesHandle,
		student.CurrentRating,
		student.MaxRating,
		student.SyncSettings.SyncTime,
		student.SyncSettings.SyncFrequency,
		student.SyncSettings.EmailReminders,
		nullTime(student.LastSyncedAt),
		student.ReminderCount,
		nullTime(student.LastReminderSent),
		student.CreatedAt,
		student.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ? LIMIT 1")
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// GetStudents returns all student rows, newest first. rowid breaks ties
// between rows created within the same millisecond.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT "+studentColumns+" FROM students ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// UpdateStudentByID overwrites every mutable column and returns the row
// as stored.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE students SET
			name = ?, email = ?, phone_number = ?, codeforces_handle = ?,
			current_rating = ?, max_rating = ?,
			sync_time = ?, sync_frequency = ?, email_reminders = ?,
			last_synced_at = ?, reminder_count = ?, last_reminder_sent = ?,
			updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		student.Name,
		student.Email,
		student.PhoneNumber,
		student.CodeforcesHandle,
		student.CurrentRating,
		student.MaxRating,
		student.SyncSettings.SyncTime,
		student.SyncSettings.SyncFrequency,
		student.SyncSettings.EmailReminders,
		nullTime(student.LastSyncedAt),
		student.ReminderCount,
		nullTime(student.LastReminderSent),
		now(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Student{}, storage.ErrNotFound
	}

	// Re-fetch the record so we return exactly what is stored in the DB.
	return s.GetStudentByID(ctx, id)
}

// DeleteStudentByID removes a student row by primary key.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (types.Student, error) {
	var (
		student          types.Student
		lastSyncedAt     sql.NullTime
		lastReminderSent sql.NullTime
	)

	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.PhoneNumber,
		&student.CodeforcesHandle,
		&student.CurrentRating,
		&student.MaxRating,
		&student.SyncSettings.SyncTime,
		&student.SyncSettings.SyncFrequency,
		&student.SyncSettings.EmailReminders,
		&lastSyncedAt,
		&student.ReminderCount,
		&lastReminderSent,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return types.Student{}, err
	}

	student.LastSyncedAt = timePtr(lastSyncedAt)
	student.LastReminderSent = timePtr(lastReminderSent)
	student.CreatedAt = student.CreatedAt.UTC()
	student.UpdatedAt = student.UpdatedAt.UTC()
	return student, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
