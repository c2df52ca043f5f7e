// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) and the rating sync job should not know or care
// which database they are talking to. Two backends live under this package
// (sqlite and mongo) and main.go picks one from config.
//
// Tests pass a fake that satisfies the interface, so handler tests need no
// database at all.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// Errors every backend maps its own failures onto. Callers compare with
// errors.Is, so backends may wrap them with more context.
var (
	// ErrNotFound means no student has the given id.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateEmail means the write would break email uniqueness.
	ErrDuplicateEmail = errors.New("email already exists")
)

// Storage is the database contract.
type Storage interface {
	// CreateStudent stores a new student. The backend assigns ID,
	// CreatedAt and UpdatedAt and returns the stored record.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student, or ErrNotFound.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// GetStudents returns every student, newest-created first.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// UpdateStudentByID replaces the mutable fields of an existing student,
	// refreshes UpdatedAt and returns the stored state.
	UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student permanently, or returns
	// ErrNotFound when nothing was deleted.
	DeleteStudentByID(ctx context.Context, id string) error

	// Close releases the underlying connection pool.
	Close() error
}
