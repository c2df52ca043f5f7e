package dashboard

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

type fakeAPI struct {
	listFn   func() ([]types.Student, error)
	createFn func(types.StudentInput) (types.Student, error)
	updateFn func(string, types.StudentInput) (types.Student, error)
	deleteFn func(string) error
}

func (f *fakeAPI) ListStudents(context.Context) ([]types.Student, error) {
	return f.listFn()
}
func (f *fakeAPI) CreateStudent(_ context.Context, in types.StudentInput) (types.Student, error) {
	return f.createFn(in)
}
func (f *fakeAPI) UpdateStudent(_ context.Context, id string, in types.StudentInput) (types.Student, error) {
	return f.updateFn(id, in)
}
func (f *fakeAPI) DeleteStudent(_ context.Context, id string) error {
	return f.deleteFn(id)
}

func TestStore_LoadAddEditDelete(t *testing.T) {
	api := &fakeAPI{
		listFn: func() ([]types.Student, error) { return sampleStudents(), nil },
		createFn: func(in types.StudentInput) (types.Student, error) {
			return types.Student{ID: "3", Name: *in.Name, Email: *in.Email}, nil
		},
		updateFn: func(id string, in types.StudentInput) (types.Student, error) {
			return types.Student{ID: id, Name: *in.Name, Email: *in.Email}, nil
		},
		deleteFn: func(string) error { return nil },
	}
	store := NewStore(api)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx))
	assert.Len(t, store.State().Students, 2)

	_, err := store.Add(ctx, StudentForm{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "3", store.State().Students[0].ID)

	_, err = store.Edit(ctx, "1", StudentForm{Name: "Johnny", Email: "john@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", store.State().Students[1].Name)

	require.NoError(t, store.Delete(ctx, "2"))
	assert.Len(t, store.State().Students, 2)
}

func TestStore_Failures(t *testing.T) {
	apiErr := &APIError{StatusCode: 400, Message: "Email already exists"}
	api := &fakeAPI{
		listFn: func() ([]types.Student, error) { return nil, errors.New("connection refused") },
		createFn: func(types.StudentInput) (types.Student, error) {
			return types.Student{}, apiErr
		},
		deleteFn: func(string) error { return &APIError{StatusCode: 404, Message: "Student not found"} },
	}
	store := NewStore(api)
	ctx := context.Background()

	assert.Error(t, store.Load(ctx))
	assert.False(t, store.State().Loading)
	assert.EqualError(t, store.State().Err, "connection refused")

	// invalid forms never reach the API
	_, err := store.Add(ctx, StudentForm{Name: "", Email: "bad"})
	var formErrs FormErrors
	require.True(t, errors.As(err, &formErrs))
	assert.Len(t, formErrs, 2)

	_, err = store.Add(ctx, StudentForm{Name: "Ann", Email: "ann@x.com"})
	var got *APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "Email already exists", got.Message)
	assert.Equal(t, apiErr, store.State().Err)

	err = store.Delete(ctx, "x")
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 404, got.StatusCode)
}

func TestExportCSV(t *testing.T) {
	updated := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	students := []types.Student{
		{Name: "John Doe", Email: "john@example.com", PhoneNumber: "1234567890", CodeforcesHandle: "john_cf",
			CurrentRating: 1500, MaxRating: 1600, UpdatedAt: updated},
		{Name: "Doe, Jane", Email: "jane@example.com"},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, students))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"John Doe", "john@example.com", "1234567890", "john_cf", "1500", "1600", "2024-05-15 10:30:00"}, rows[1])
	assert.Equal(t, []string{"Doe, Jane", "jane@example.com", "", "", "N/A", "N/A", "Never"}, rows[2])
}
