package dashboard

import (
	"context"
	"sync"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// API is the part of the REST client the Store needs. *APIClient
// implements it.
type API interface {
	ListStudents(ctx context.Context) ([]types.Student, error)
	CreateStudent(ctx context.Context, in types.StudentInput) (types.Student, error)
	UpdateStudent(ctx context.Context, id string, in types.StudentInput) (types.Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// Store holds State behind a mutex. All changes go through Dispatch.
type Store struct {
	mu    sync.Mutex
	state State
	api   API
}

func NewStore(api API) *Store {
	return &Store{api: api}
}

// Dispatch applies a and returns the new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load fetches the list from the API.
func (s *Store) Load(ctx context.Context) error {
	s.Dispatch(LoadStarted{})

	students, err := s.api.ListStudents(ctx)
	if err != nil {
		s.Dispatch(RequestFailed{Err: err})
		return err
	}
	s.Dispatch(StudentsLoaded{Students: students})
	return nil
}

// Add checks the form, creates the student and puts it at the top of the list.
func (s *Store) Add(ctx context.Context, form StudentForm) (types.Student, error) {
	if errs := ValidateForm(form); len(errs) > 0 {
		s.Dispatch(RequestFailed{Err: errs})
		return types.Student{}, errs
	}

	created, err := s.api.CreateStudent(ctx, form.Input())
	if err != nil {
		s.Dispatch(RequestFailed{Err: err})
		return types.Student{}, err
	}
	s.Dispatch(StudentAdded{Student: created})
	return created, nil
}

// Edit checks the form and saves it over student id.
func (s *Store) Edit(ctx context.Context, id string, form StudentForm) (types.Student, error) {
	if errs := ValidateForm(form); len(errs) > 0 {
		s.Dispatch(RequestFailed{Err: errs})
		return types.Student{}, errs
	}

	updated, err := s.api.UpdateStudent(ctx, id, form.Input())
	if err != nil {
		s.Dispatch(RequestFailed{Err: err})
		return types.Student{}, err
	}
	s.Dispatch(StudentUpdated{Student: updated})
	return updated, nil
}

// Delete removes student id on the server, then locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteStudent(ctx, id); err != nil {
		s.Dispatch(RequestFailed{Err: err})
		return err
	}
	s.Dispatch(StudentDeleted{ID: id})
	return nil
}
