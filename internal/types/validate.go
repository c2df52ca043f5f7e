package types

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailRegex    = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	phoneRegex    = regexp.MustCompile(`^[0-9]{10,15}$`)
	syncTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):00$`)
)

// validate is shared by every caller. A *validator.Validate caches struct
// metadata and is safe for concurrent use, so one instance is enough.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names the way clients send them ("email", not "Email").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "cfemail", emailRegex)
	mustRegister(v, "phone", phoneRegex)
	mustRegister(v, "synctime", syncTimeRegex)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Validate checks the validate:"..." tags on s. On failure the error is a
// validator.ValidationErrors.
func Validate(s any) error {
	return validate.Struct(s)
}
