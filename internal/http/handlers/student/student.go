// Package student contains all HTTP handlers for the Student resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// The router wants func(http.ResponseWriter, *http.Request). Dependencies
// (the store, the rating lookup, the sync job) are injected by a factory
// that runs once at startup and returns the per-request closure:
//
//	router.HandleFunc("POST /api/students", student.New(store))
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
	"github.com/aanand-mishra/students-dashboard/internal/utils/response"
)

// Messages that are part of the API contract.
const (
	MsgNotFound       = "Student not found"
	MsgDuplicateEmail = "Email already exists"
	MsgDeleted        = "Student deleted successfully"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students.
//
//	{ "name": "Ann", "email": "Ann@X.com", "codeforcesHandle": "ann_cf" }
//
// 200 with the stored student (id, defaults and timestamps filled in).
// 400 for an empty/malformed body, a validation failure or a duplicate
// email; 500 for anything else.
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zap.L().Info("creating a student")

		var in types.StudentInput
		if err := decodeBody(w, r, &in); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		student := types.NewStudent(in)
		if !validStudent(w, student) {
			return
		}

		created, err := store.CreateStudent(r.Context(), student)
		if err != nil {
			writeStoreError(w, err, "create", "")
			return
		}

		zap.L().Info("student created", zap.String("id", created.ID))
		response.WriteJSON(w, http.StatusOK, created)
	}
}

// GetByID handles GET /api/students/{id}.
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("getting a student", zap.String("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "get", id)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /api/students. The array is newest first and is []
// rather than null when empty.
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zap.L().Info("getting all students")

		students, err := store.GetStudents(r.Context())
		if err != nil {
			writeStoreError(w, err, "list", "")
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}.
//
// Any subset of the create fields may be sent; they are merged onto the
// stored record and the merged record is validated as a whole. The id is
// resolved BEFORE the body is looked at, so a missing student is always a
// 404 whatever the payload.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("updating a student", zap.String("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "update", id)
			return
		}

		var in types.StudentInput
		if err := decodeBody(w, r, &in); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		in.Apply(&student)
		if !validStudent(w, student) {
			return
		}

		updated, err := store.UpdateStudentByID(r.Context(), id, student)
		if err != nil {
			writeStoreError(w, err, "update", id)
			return
		}

		zap.L().Info("student updated", zap.String("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/students/{id}.
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("deleting a student", zap.String("id", id))

		if err := store.DeleteStudentByID(r.Context(), id); err != nil {
			writeStoreError(w, err, "delete", id)
			return
		}

		zap.L().Info("student deleted", zap.String("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message{Message: MsgDeleted})
	}
}

// decodeBody reads a JSON body into v. io.EOF from the decoder means the
// body was empty.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// validStudent writes a 400 and returns false when s fails validation.
func validStudent(w http.ResponseWriter, s types.Student) bool {
	err := types.Validate(s)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
	} else {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	}
	return false
}

// writeStoreError maps storage errors onto status codes:
// ErrNotFound → 404, ErrDuplicateEmail → 400, anything else → 500.
func writeStoreError(w http.ResponseWriter, err error, op, id string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.ErrorMessage(MsgNotFound))
	case errors.Is(err, storage.ErrDuplicateEmail):
		response.WriteJSON(w, http.StatusBadRequest, response.ErrorMessage(MsgDuplicateEmail))
	default:
		zap.L().Error("storage error",
			zap.String("op", op), zap.String("id", id), zap.Error(err))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}
