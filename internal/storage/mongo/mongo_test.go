package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/storage/storagetest"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// These tests need a running MongoDB. Set MONGO_TEST_URI, for example
// mongodb://localhost:27017, to run them.
func newTestStore(t *testing.T) *Mongo {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	collection := fmt.Sprintf("students_%s_%d",
		strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())

	m, err := Open(context.Background(), uri, "students_dashboard_test", collection)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Drop(context.Background())
		_ = m.Close()
	})
	return m
}

func TestMongo_Storage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newTestStore(t) })
}

func TestMongo_MalformedIDIsNotFound(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	_, err := m.GetStudentByID(ctx, "not-hex")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, m.DeleteStudentByID(ctx, "not-hex"), storage.ErrNotFound)
}

func TestDocumentRoundTrip(t *testing.T) {
	synced := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	in := storagetest.NewStudent("Ann", "ann@x.com")
	in.CodeforcesHandle = "ann"
	in.CurrentRating = 1400
	in.LastSyncedAt = &synced
	in.SyncSettings.SyncFrequency = types.FrequencyMonthly

	out := toDocument(in).toStudent()

	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.CodeforcesHandle, out.CodeforcesHandle)
	assert.Equal(t, in.CurrentRating, out.CurrentRating)
	assert.Equal(t, in.SyncSettings, out.SyncSettings)
	require.NotNil(t, out.LastSyncedAt)
	assert.True(t, synced.Equal(*out.LastSyncedAt))
	assert.Nil(t, out.LastReminderSent)
}
