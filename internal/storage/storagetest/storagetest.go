// Package storagetest holds the behaviour every storage.Storage backend must
// show. Backend packages call Run from their own tests with a constructor
// for a fresh, empty store.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// NewStoreFunc returns an empty store. It should register its own cleanup.
type NewStoreFunc func(t *testing.T) storage.Storage

// NewStudent returns a valid student with the given name and email.
func NewStudent(name, email string) types.Student {
	return types.NewStudent(types.StudentInput{Name: &name, Email: &email})
}

// Run executes the shared backend suite.
func Run(t *testing.T, newStore NewStoreFunc) {
	t.Run("CreateAssignsDefaults", func(t *testing.T) { testCreate(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateDuplicateEmail", func(t *testing.T) { testUpdateDuplicate(t, newStore(t)) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("DeleteTwice", func(t *testing.T) { testDelete(t, newStore(t)) })
}

func testCreate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ann", "Ann@X.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ann@x.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, 0, got.CurrentRating)
	assert.Equal(t, 0, got.MaxRating)
	assert.Equal(t, types.DefaultSyncSettings(), got.SyncSettings)
	assert.Nil(t, got.LastSyncedAt)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func testDuplicateEmail(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateStudent(ctx, NewStudent("Ann", "Ann@X.com"))
	require.NoError(t, err)

	_, err = s.CreateStudent(ctx, NewStudent("Other Ann", "ann@x.com"))
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func testGetNotFound(t *testing.T, s storage.Storage) {
	_, err := s.GetStudentByID(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListOrder(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	empty, err := s.GetStudents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"first", "second", "third"} {
		_, err := s.CreateStudent(ctx, NewStudent(name, name+"@example.com"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := s.GetStudents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, "first", list[2].Name)
}

func testUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ann", "ann@x.com"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	synced := time.Now().UTC().Truncate(time.Millisecond)
	created.Name = "Ann Lee"
	created.CodeforcesHandle = "annlee"
	created.CurrentRating = 1500
	created.MaxRating = 1600
	created.LastSyncedAt = &synced
	created.SyncSettings.SyncFrequency = types.FrequencyWeekly

	updated, err := s.UpdateStudentByID(ctx, created.ID, created)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ann Lee", updated.Name)
	assert.Equal(t, "annlee", updated.CodeforcesHandle)
	assert.Equal(t, 1500, updated.CurrentRating)
	assert.Equal(t, 1600, updated.MaxRating)
	assert.Equal(t, types.FrequencyWeekly, updated.SyncSettings.SyncFrequency)
	require.NotNil(t, updated.LastSyncedAt)
	assert.True(t, synced.Equal(*updated.LastSyncedAt))
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func testUpdateDuplicate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateStudent(ctx, NewStudent("Ann", "ann@x.com"))
	require.NoError(t, err)
	bob, err := s.CreateStudent(ctx, NewStudent("Bob", "bob@x.com"))
	require.NoError(t, err)

	bob.Email = "ann@x.com"
	_, err = s.UpdateStudentByID(ctx, bob.ID, bob)
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func testUpdateNotFound(t *testing.T, s storage.Storage) {
	_, err := s.UpdateStudentByID(context.Background(), "does-not-exist", NewStudent("Ann", "ann@x.com"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ann", "ann@x.com"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteStudentByID(ctx, created.ID))
	assert.ErrorIs(t, s.DeleteStudentByID(ctx, created.ID), storage.ErrNotFound)

	_, err = s.GetStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
