package student_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/http/handlers/student"
	"github.com/aanand-mishra/students-dashboard/internal/ratingsync"
	"github.com/aanand-mishra/students-dashboard/internal/storage/sqlite"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// TestStudentLifecycle runs the routes against a real in-memory SQLite store.
func TestStudentLifecycle(t *testing.T) {
	store, err := sqlite.Open("file:lifecycle?mode=memory&cache=shared")
	require.NoError(t, err)
	defer store.Close()

	lookup := fakeLookup(func(handle string) (codeforces.UserInfo, error) {
		return codeforces.UserInfo{Handle: handle, Rating: 1620, MaxRating: 1700}, nil
	})
	job := ratingsync.New(store, lookup, config.Sync{}, zap.NewNop())

	mux := http.NewServeMux()
	student.RegisterRoutes(mux, store, lookup, job)

	rr := do(t, mux, http.MethodPost, "/api/students", `{"name":"Ann","email":"Ann@X.com"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var ann types.Student
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ann))
	assert.Equal(t, "ann@x.com", ann.Email)
	require.NotEmpty(t, ann.ID)

	rr = do(t, mux, http.MethodPost, "/api/students", `{"name":"Ann Again","email":"ann@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, student.MsgDuplicateEmail, errorBody(t, rr))

	rr = do(t, mux, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.Student
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ann", list[0].Name)
	assert.Equal(t, 0, list[0].CurrentRating)
	assert.Equal(t, 0, list[0].MaxRating)

	// newest first
	time.Sleep(2 * time.Millisecond)
	rr = do(t, mux, http.MethodPost, "/api/students", `{"name":"Bob","email":"bob@x.com","codeforcesHandle":"bob_cf"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var bob types.Student
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bob))

	rr = do(t, mux, http.MethodGet, "/api/students", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[0].Name)

	// sync writes the live rating back
	rr = do(t, mux, http.MethodPost, "/api/students/"+bob.ID+"/sync", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = do(t, mux, http.MethodGet, "/api/students/"+bob.ID, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bob))
	assert.Equal(t, 1620, bob.CurrentRating)
	assert.Equal(t, 1700, bob.MaxRating)
	assert.NotNil(t, bob.LastSyncedAt)

	rr = do(t, mux, http.MethodPost, "/api/students/"+ann.ID+"/sync", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodDelete, "/api/students/"+ann.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, mux, http.MethodGet, "/api/students/"+ann.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodDelete, "/api/students/"+ann.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
