package validation

import (
	"regexp"
	"strconv"
	"strings"
)

// Form identifies which form's rule set applies.
type Form int

const (
	FormLogin Form = iota
	FormSignup
	FormNewStore
	FormNewUser
)

// Fields is the raw input of a form, keyed by field name.
type Fields map[string]string

// Errors maps a field name to a single human-readable message.
// A field absent from the map is currently valid.
type Errors map[string]string

// MaxAddressLen caps the optional address field. Enforced as an input
// constraint by callers, not reported as a validation error.
const MaxAddressLen = 400

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks every field of the given form and reports all
// violations together. It is pure and never touches the network.
// An empty result means the form is submittable.
func Validate(form Form, f Fields) Errors {
	errs := Errors{}

	switch form {
	case FormLogin:
		checkEmail(errs, f["email"])
		if f["password"] == "" {
			errs["password"] = "Password is required"
		}
	case FormSignup, FormNewUser:
		checkName(errs, f["name"], "Name")
		checkEmail(errs, f["email"])
		checkPassword(errs, f["password"])
	case FormNewStore:
		checkName(errs, f["name"], "Store name")
		checkEmail(errs, f["email"])
		checkOwnerID(errs, f["owner_id"])
	}
	return errs
}

// Trim strips leading/trailing whitespace from the fields that are
// trimmed before validation and submission. Passwords are never trimmed.
func Trim(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if k == "password" {
			out[k] = v
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func checkName(errs Errors, name, label string) {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		errs["name"] = label + " is required"
	case len(n) < 3:
		errs["name"] = label + " must be at least 3 characters"
	case len(n) > 60:
		errs["name"] = label + " must be less than 60 characters"
	}
}

func checkEmail(errs Errors, email string) {
	e := strings.TrimSpace(email)
	if e == "" || !emailRegex.MatchString(e) {
		errs["email"] = "Please enter a valid email address"
	}
}

// Passwords are checked raw: surrounding whitespace counts.
func checkPassword(errs Errors, pw string) {
	if len(pw) < 8 || len(pw) > 16 {
		errs["password"] = "Password must be between 8 and 16 characters"
	}
}

func checkOwnerID(errs Errors, raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		errs["owner_id"] = "Please select a store owner"
		return
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		errs["owner_id"] = "Invalid owner selection"
	}
}
