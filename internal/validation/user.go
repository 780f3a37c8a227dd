package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}

	if len(username) > 150 {
		return fmt.Errorf("username must not exceed 150 characters")
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers and @/./+/-/_ characters")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// FieldErrors collects validation messages keyed by request field.
type FieldErrors map[string][]string

// Add appends msg to field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Required records the standard message when value is blank.
func (f FieldErrors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.Add(field, "This field is required.")
		return false
	}
	return true
}

// Empty reports whether no field has errors.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}
