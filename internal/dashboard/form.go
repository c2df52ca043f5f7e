package dashboard

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// StudentForm is what the add and edit dialogs collect. The validate tags
// are the same rules the server applies to types.Student.
type StudentForm struct {
	Name             string `json:"name"        validate:"required"`
	Email            string `json:"email"       validate:"required,cfemail"`
	PhoneNumber      string `json:"phoneNumber" validate:"omitempty,phone"`
	CodeforcesHandle string `json:"codeforcesHandle"`
}

// formMessages are the dialog texts per field and failed tag.
var formMessages = map[string]map[string]string{
	"name":        {"required": "Name is required"},
	"email":       {"required": "Email is required", "cfemail": "Please enter a valid email"},
	"phoneNumber": {"phone": "Phone number must be 10-15 digits"},
}

// FormErrors maps a json field name to what is wrong with it.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+": "+e[f])
	}
	return strings.Join(msgs, ", ")
}

// ValidateForm applies the server's field rules before anything is sent.
// The result is empty when the form is fine.
func ValidateForm(f StudentForm) FormErrors {
	errs := FormErrors{}

	// check what the server would store, not the raw input
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)

	var verrs validator.ValidationErrors
	if err := types.Validate(f); !errors.As(err, &verrs) {
		return errs
	}
	for _, fe := range verrs {
		msg, ok := formMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		errs[fe.Field()] = msg
	}
	return errs
}

// Input converts the form into a request body. Every field is sent so an
// edit can clear the optional ones.
func (f StudentForm) Input() types.StudentInput {
	return types.StudentInput{
		Name:             &f.Name,
		Email:            &f.Email,
		PhoneNumber:      &f.PhoneNumber,
		CodeforcesHandle: &f.CodeforcesHandle,
	}
}

// FormFrom pre-fills the edit dialog.
func FormFrom(s types.Student) StudentForm {
	return StudentForm{
		Name:             s.Name,
		Email:            s.Email,
		PhoneNumber:      s.PhoneNumber,
		CodeforcesHandle: s.CodeforcesHandle,
	}
}
