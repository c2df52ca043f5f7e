// Package dashboard is the client side of the students dashboard: a state
// container with a pure reducer, the list filter, form checks, CSV export
// and a REST client for the API. cmd/dashboard drives it from a terminal.
package dashboard

import (
	"strings"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// Modal names which dialog is open, if any.
type Modal string

const (
	ModalNone   Modal = ""
	ModalAdd    Modal = "add"
	ModalEdit   Modal = "edit"
	ModalDelete Modal = "delete"
)

// State is everything the list view renders from.
type State struct {
	Students []types.Student
	Loading  bool
	Search   string
	Modal    Modal
	Selected *types.Student
	Err      error
}

// Action is a state transition. Only the types in this file implement it.
type Action interface {
	isAction()
}

type (
	LoadStarted    struct{}
	StudentsLoaded struct{ Students []types.Student }
	StudentAdded   struct{ Student types.Student }
	StudentUpdated struct{ Student types.Student }
	StudentDeleted struct{ ID string }
	SearchChanged  struct{ Term string }
	ModalOpened    struct {
		Modal   Modal
		Student *types.Student
	}
	ModalClosed   struct{}
	RequestFailed struct{ Err error }
)

func (LoadStarted) isAction()    {}
func (StudentsLoaded) isAction() {}
func (StudentAdded) isAction()   {}
func (StudentUpdated) isAction() {}
func (StudentDeleted) isAction() {}
func (SearchChanged) isAction()  {}
func (ModalOpened) isAction()    {}
func (ModalClosed) isAction()    {}
func (RequestFailed) isAction()  {}

// Reduce returns the state after a. It never modifies s.Students in place;
// every change to the list builds a new slice.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadStarted:
		s.Loading = true
		s.Err = nil

	case StudentsLoaded:
		s.Students = append([]types.Student(nil), a.Students...)
		s.Loading = false
		s.Err = nil

	case StudentAdded:
		// the list is newest first
		students := make([]types.Student, 0, len(s.Students)+1)
		students = append(students, a.Student)
		s.Students = append(students, s.Students...)
		s = closeModal(s)

	case StudentUpdated:
		students := make([]types.Student, len(s.Students))
		copy(students, s.Students)
		for i := range students {
			if students[i].ID == a.Student.ID {
				students[i] = a.Student
			}
		}
		s.Students = students
		s = closeModal(s)

	case StudentDeleted:
		students := make([]types.Student, 0, len(s.Students))
		for _, st := range s.Students {
			if st.ID != a.ID {
				students = append(students, st)
			}
		}
		s.Students = students
		s = closeModal(s)

	case SearchChanged:
		s.Search = a.Term

	case ModalOpened:
		s.Modal = a.Modal
		s.Selected = nil
		if a.Student != nil {
			selected := *a.Student
			s.Selected = &selected
		}
		s.Err = nil

	case ModalClosed:
		s = closeModal(s)

	case RequestFailed:
		s.Err = a.Err
		s.Loading = false
	}
	return s
}

func closeModal(s State) State {
	s.Modal = ModalNone
	s.Selected = nil
	s.Err = nil
	return s
}

// Filter keeps the students whose name, email or handle contains term,
// ignoring case. An empty term keeps everyone.
func Filter(students []types.Student, term string) []types.Student {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]types.Student, 0, len(students))
	for _, s := range students {
		if term == "" ||
			strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Email), term) ||
			strings.Contains(strings.ToLower(s.CodeforcesHandle), term) {
			out = append(out, s)
		}
	}
	return out
}

// Visible is the filtered list the table shows.
func (s State) Visible() []types.Student {
	return Filter(s.Students, s.Search)
}
