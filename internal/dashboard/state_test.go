package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

func sampleStudents() []types.Student {
	return []types.Student{
		{ID: "1", Name: "John Doe", Email: "john@example.com", CodeforcesHandle: "john_cf", CurrentRating: 1500},
		{ID: "2", Name: "Jane Smith", Email: "jane@example.com", CodeforcesHandle: "jane_cf", CurrentRating: 2100},
	}
}

func TestFilter(t *testing.T) {
	students := sampleStudents()

	got := Filter(students, "jan")
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Smith", got[0].Name)

	assert.Len(t, Filter(students, "JOHN_CF"), 1)
	assert.Len(t, Filter(students, "example.com"), 2)
	assert.Len(t, Filter(students, ""), 2)
	assert.Len(t, Filter(students, "  "), 2)
	assert.Empty(t, Filter(students, "zzz"))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	orig := sampleStudents()
	s := State{Students: orig}

	updated := orig[0]
	updated.Name = "Johnny"

	Reduce(s, StudentUpdated{Student: updated})
	Reduce(s, StudentDeleted{ID: "2"})
	Reduce(s, StudentAdded{Student: types.Student{ID: "3"}})

	assert.Equal(t, sampleStudents(), orig)
	assert.Equal(t, sampleStudents(), s.Students)
}

func TestReduce_ListChanges(t *testing.T) {
	s := Reduce(State{}, LoadStarted{})
	assert.True(t, s.Loading)

	s = Reduce(s, StudentsLoaded{Students: sampleStudents()})
	assert.False(t, s.Loading)
	require.Len(t, s.Students, 2)

	s = Reduce(s, ModalOpened{Modal: ModalAdd})
	s = Reduce(s, StudentAdded{Student: types.Student{ID: "3", Name: "Ann"}})
	require.Len(t, s.Students, 3)
	assert.Equal(t, "Ann", s.Students[0].Name, "new students go first")
	assert.Equal(t, ModalNone, s.Modal)

	jane := s.Students[2]
	jane.CurrentRating = 2200
	s = Reduce(s, StudentUpdated{Student: jane})
	assert.Equal(t, 2200, s.Students[2].CurrentRating)

	s = Reduce(s, StudentDeleted{ID: "1"})
	require.Len(t, s.Students, 2)
	for _, st := range s.Students {
		assert.NotEqual(t, "1", st.ID)
	}
}

func TestReduce_ModalsAndErrors(t *testing.T) {
	target := sampleStudents()[1]

	s := Reduce(State{}, ModalOpened{Modal: ModalDelete, Student: &target})
	assert.Equal(t, ModalDelete, s.Modal)
	require.NotNil(t, s.Selected)
	assert.Equal(t, "2", s.Selected.ID)

	target.Name = "changed"
	assert.Equal(t, "Jane Smith", s.Selected.Name, "selection is a copy")

	boom := errors.New("boom")
	s = Reduce(s, RequestFailed{Err: boom})
	assert.Equal(t, boom, s.Err)
	assert.Equal(t, ModalDelete, s.Modal, "modal stays open to show the error")

	s = Reduce(s, ModalClosed{})
	assert.Equal(t, ModalNone, s.Modal)
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Err)

	s = Reduce(State{Students: sampleStudents()}, SearchChanged{Term: "jan"})
	assert.Len(t, s.Visible(), 1)
}

func TestValidateForm(t *testing.T) {
	assert.Empty(t, ValidateForm(StudentForm{Name: "Ann", Email: "Ann@X.com"}))
	assert.Empty(t, ValidateForm(StudentForm{Name: "Ann", Email: "a@b.com", PhoneNumber: "1234567890"}))

	errs := ValidateForm(StudentForm{Email: "bad", PhoneNumber: "12345"})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "phoneNumber")
	assert.Equal(t, "email: Please enter a valid email, name: Name is required, phoneNumber: Phone number must be 10-15 digits", errs.Error())

	errs = ValidateForm(StudentForm{Name: "Ann"})
	assert.Equal(t, "Email is required", errs["email"])

	// input is normalised the way the server stores it before checking
	assert.Empty(t, ValidateForm(StudentForm{Name: " Ann ", Email: "  Ann@X.com ", PhoneNumber: " 1234567890 "}))
	assert.Equal(t, "Name is required", ValidateForm(StudentForm{Name: "   ", Email: "a@b.com"})["name"])
}

func TestValidateForm_AgreesWithServer(t *testing.T) {
	forms := []StudentForm{
		{Name: "Ann", Email: "a@b.com"},
		{Name: "Ann", Email: "a@b"},
		{Name: "", Email: "a@b.com"},
		{Name: "Ann", Email: "a@b.com", PhoneNumber: "123456789012345"},
		{Name: "Ann", Email: "a@b.com", PhoneNumber: "1234567890123456"},
		{Name: "Ann", Email: "a@b.com", PhoneNumber: "12345abcde"},
	}
	for _, f := range forms {
		serverErr := types.Validate(types.NewStudent(f.Input()))
		assert.Equal(t, serverErr == nil, len(ValidateForm(f)) == 0, "%+v", f)
	}
}
