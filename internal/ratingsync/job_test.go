package ratingsync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/storage/sqlite"
	"github.com/aanand-mishra/students-dashboard/internal/storage/storagetest"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

type fakeLookup struct {
	mu    sync.Mutex
	users map[string]codeforces.UserInfo
	calls []string
}

func (f *fakeLookup) UserInfo(_ context.Context, handle string) (codeforces.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, handle)
	info, ok := f.users[handle]
	if !ok {
		return codeforces.UserInfo{}, codeforces.ErrHandleNotFound
	}
	return info, nil
}

// 2024-06-02 is a Sunday.
var sunday3am = time.Date(2024, 6, 2, 3, 10, 0, 0, time.UTC)

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newJob(t *testing.T, store storage.Storage, lookup codeforces.Lookup) *Job {
	t.Helper()
	j := New(store, lookup, config.Sync{Enabled: true, Schedule: "0 * * * *"}, zap.NewNop())
	j.now = func() time.Time { return sunday3am }
	return j
}

func addStudent(t *testing.T, store storage.Storage, email, handle, syncTime, freq string) types.Student {
	t.Helper()
	s := storagetest.NewStudent("Student "+email, email)
	s.CodeforcesHandle = handle
	s.SyncSettings.SyncTime = syncTime
	s.SyncSettings.SyncFrequency = freq
	created, err := store.CreateStudent(context.Background(), s)
	require.NoError(t, err)
	return created
}

func TestDue(t *testing.T) {
	base := types.Student{CodeforcesHandle: "h", SyncSettings: types.SyncSettings{SyncTime: "03:00", SyncFrequency: types.FrequencyDaily}}
	recent := sunday3am.Add(-10 * time.Minute)
	yesterday := sunday3am.Add(-24 * time.Hour)

	tests := []struct {
		name   string
		mutate func(*types.Student)
		at     time.Time
		want   bool
	}{
		{"daily at hour", func(*types.Student) {}, sunday3am, true},
		{"daily other hour", func(*types.Student) {}, sunday3am.Add(time.Hour), false},
		{"no handle", func(s *types.Student) { s.CodeforcesHandle = "" }, sunday3am, false},
		{"weekly on sunday", func(s *types.Student) { s.SyncSettings.SyncFrequency = types.FrequencyWeekly }, sunday3am, true},
		{"weekly on monday", func(s *types.Student) { s.SyncSettings.SyncFrequency = types.FrequencyWeekly }, sunday3am.AddDate(0, 0, 1), false},
		{"monthly on the first", func(s *types.Student) { s.SyncSettings.SyncFrequency = types.FrequencyMonthly }, time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC), true},
		{"monthly mid month", func(s *types.Student) { s.SyncSettings.SyncFrequency = types.FrequencyMonthly }, sunday3am, false},
		{"malformed time", func(s *types.Student) { s.SyncSettings.SyncTime = "3am" }, sunday3am, false},
		{"synced moments ago", func(s *types.Student) { s.LastSyncedAt = &recent }, sunday3am, false},
		{"synced yesterday", func(s *types.Student) { s.LastSyncedAt = &yesterday }, sunday3am, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.Equal(t, tt.want, Due(s, tt.at))
		})
	}
}

func TestSyncStudent(t *testing.T) {
	store := newStore(t)
	lookup := &fakeLookup{users: map[string]codeforces.UserInfo{
		"ann_cf": {Handle: "ann_cf", Rating: 1450, MaxRating: 1500},
	}}
	j := newJob(t, store, lookup)
	ctx := context.Background()

	s := addStudent(t, store, "ann@x.com", "ann_cf", "03:00", types.FrequencyDaily)
	s.MaxRating = 1700
	_, err := store.UpdateStudentByID(ctx, s.ID, s)
	require.NoError(t, err)

	got, err := j.SyncStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1450, got.CurrentRating)
	assert.Equal(t, 1700, got.MaxRating, "max rating never decreases")
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, sunday3am.Equal(*got.LastSyncedAt))

	stored, err := store.GetStudentByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1450, stored.CurrentRating)
}

func TestSyncStudent_Errors(t *testing.T) {
	store := newStore(t)
	j := newJob(t, store, &fakeLookup{})
	ctx := context.Background()

	_, err := j.SyncStudent(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	noHandle := addStudent(t, store, "nh@x.com", "", "03:00", types.FrequencyDaily)
	_, err = j.SyncStudent(ctx, noHandle.ID)
	assert.ErrorIs(t, err, ErrNoHandle)

	ghost := addStudent(t, store, "g@x.com", "ghost", "03:00", types.FrequencyDaily)
	_, err = j.SyncStudent(ctx, ghost.ID)
	assert.ErrorIs(t, err, codeforces.ErrHandleNotFound)

	stored, err := store.GetStudentByID(ctx, ghost.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastSyncedAt)
}

func TestRunDue(t *testing.T) {
	store := newStore(t)
	lookup := &fakeLookup{users: map[string]codeforces.UserInfo{
		"a": {Rating: 1200, MaxRating: 1300},
		"b": {Rating: 1900, MaxRating: 2000},
		"c": {Rating: 800, MaxRating: 900},
	}}
	j := newJob(t, store, lookup)
	ctx := context.Background()

	a := addStudent(t, store, "a@x.com", "a", "03:00", types.FrequencyDaily)
	b := addStudent(t, store, "b@x.com", "b", "03:00", types.FrequencyWeekly)
	c := addStudent(t, store, "c@x.com", "c", "04:00", types.FrequencyDaily)
	addStudent(t, store, "d@x.com", "ghost", "03:00", types.FrequencyDaily)
	addStudent(t, store, "e@x.com", "", "03:00", types.FrequencyDaily)

	res, err := j.RunDue(ctx, sunday3am)
	require.NoError(t, err)
	assert.Equal(t, Result{Due: 3, Synced: 2, Failed: 1}, res)
	assert.NotContains(t, lookup.calls, "c")

	for id, want := range map[string]int{a.ID: 1200, b.ID: 1900, c.ID: 0} {
		s, err := store.GetStudentByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, s.CurrentRating)
	}

	// a second pass in the same hour finds nothing new to do
	res, err = j.RunDue(ctx, sunday3am.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Due)
	assert.Equal(t, 1, res.Failed)
}

func TestStartStop(t *testing.T) {
	store := newStore(t)

	disabled := New(store, &fakeLookup{}, config.Sync{Enabled: false, Schedule: "bogus"}, zap.NewNop())
	assert.NoError(t, disabled.Start())

	bad := New(store, &fakeLookup{}, config.Sync{Enabled: true, Schedule: "not a schedule"}, zap.NewNop())
	assert.Error(t, bad.Start())

	j := New(store, &fakeLookup{}, config.Sync{Enabled: true, Schedule: "@every 1h"}, zap.NewNop())
	require.NoError(t, j.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}

func TestSyncStudent_IgnoresCachedRating(t *testing.T) {
	var rating atomic.Int32
	rating.Store(1500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"OK","result":[{"handle":"ann_cf","rating":%d,"maxRating":1800}]}`, rating.Load())
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	client := codeforces.NewClient(srv.URL, time.Second,
		codeforces.WithCache(codeforces.NewRedisCache(rdb, time.Hour)))

	store := newStore(t)
	j := newJob(t, store, client)
	ctx := context.Background()
	s := addStudent(t, store, "ann@x.com", "ann_cf", "03:00", types.FrequencyDaily)

	// a profile view warms the cache
	_, err := client.UserInfo(ctx, "ann_cf")
	require.NoError(t, err)
	rating.Store(1800)

	got, err := j.SyncStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1800, got.CurrentRating)

	cached, err := client.UserInfo(ctx, "ann_cf")
	require.NoError(t, err)
	assert.Equal(t, 1800, cached.Rating, "sync refreshes the cache too")
}
