package student

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/ratingsync"
	"github.com/aanand-mishra/students-dashboard/internal/stats"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
	"github.com/aanand-mishra/students-dashboard/internal/utils/response"
)

// Default ?days= windows, as the dashboard opens each tab.
const (
	defaultContestDays = 30
	defaultProblemDays = 7
)

// Syncer refreshes a stored student from live data. *ratingsync.Job
// satisfies it.
type Syncer interface {
	SyncStudent(ctx context.Context, id string) (types.Student, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile handles GET /api/students/{id}/profile.
//
// The stored record is enriched with the live rating for its handle. When
// the lookup fails the stored ratings are returned with "live": false and
// a "lookupError"; only a missing student is an error (404).
// ─────────────────────────────────────────────────────────────────────────────
func Profile(store storage.Storage, lookup codeforces.Lookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("getting a student profile", zap.String("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "profile", id)
			return
		}

		profile := types.Profile{Student: student}
		if student.CodeforcesHandle != "" {
			info, err := lookup.UserInfo(r.Context(), student.CodeforcesHandle)
			if err != nil {
				zap.L().Warn("live rating lookup failed, serving stored ratings",
					zap.String("id", id),
					zap.String("handle", student.CodeforcesHandle),
					zap.Error(err))
				profile.LookupError = err.Error()
			} else {
				profile.Live = true
				profile.CurrentRating = info.Rating
				profile.MaxRating = info.MaxRating
				if info.LastOnlineTimeSeconds > 0 {
					t := info.LastOnline()
					profile.LastOnlineAt = &t
				}
			}
		}

		response.WriteJSON(w, http.StatusOK, profile)
	}
}

// Contests handles GET /api/students/{id}/contests?days=30|90|365.
func Contests(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		days, err := daysParam(r, defaultContestDays, stats.ContestWindows)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		zap.L().Info("getting contest history", zap.String("id", id), zap.Int("days", days))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "contests", id)
			return
		}

		contests, err := stats.ContestHistory(student, days, time.Now())
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, contests)
	}
}

// Problems handles GET /api/students/{id}/problems?days=7|30|90.
func Problems(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		days, err := daysParam(r, defaultProblemDays, stats.ProblemWindows)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		zap.L().Info("getting problem stats", zap.String("id", id), zap.Int("days", days))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "problems", id)
			return
		}

		problems, err := stats.ProblemStats(student, days, time.Now())
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, problems)
	}
}

// SyncSettings handles PUT /api/students/{id}/sync-settings.
//
//	{ "syncTime": "03:00", "syncFrequency": "weekly", "emailReminders": false }
//
// Omitted fields keep their stored value. Responds with the updated student.
func SyncSettings(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("updating sync settings", zap.String("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "sync-settings", id)
			return
		}

		var in types.SyncSettingsInput
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
			writeStoreError(w, err, "sync-settings", id)
			return
		}
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Sync handles POST /api/students/{id}/sync: refresh the stored ratings
// right now instead of waiting for the schedule. A failed lookup is a 502;
// a student without a handle is a 400.
func Sync(syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		zap.L().Info("syncing a student", zap.String("id", id))

		updated, err := syncer.SyncStudent(r.Context(), id)
		switch {
		case err == nil:
			zap.L().Info("student synced", zap.String("id", id), zap.Int("rating", updated.CurrentRating))
			response.WriteJSON(w, http.StatusOK, updated)
		case errors.Is(err, ratingsync.ErrNoHandle):
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		case errors.Is(err, ratingsync.ErrLookup):
			zap.L().Warn("rating lookup failed", zap.String("id", id), zap.Error(err))
			response.WriteJSON(w, http.StatusBadGateway, response.GeneralError(err))
		default:
			writeStoreError(w, err, "sync", id)
		}
	}
}

// daysParam reads ?days=, falling back to def when absent.
func daysParam(r *http.Request, def int, allowed []int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil || !stats.ValidWindow(days, allowed) {
		return 0, fmt.Errorf("%w: days must be one of %v", stats.ErrInvalidWindow, allowed)
	}
	return days, nil
}
