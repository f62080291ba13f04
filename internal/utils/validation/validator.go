package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "amafaranga/internal/errors"
)

// Password requirements
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	cardRegex  = regexp.MustCompile(`^[0-9]{10}$`)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	Errors []ValidationError
}

func New() *Validator {
	return &Validator{
		Errors: make([]ValidationError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required adds an error when value is blank.
func (v *Validator) Required(value, field string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Password validates password strength. bcrypt ignores bytes past 72.
func (v *Validator) Password(password, field string) {
	v.Check(len(password) >= MinPasswordLength, field, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	v.Check(len(password) <= MaxPasswordLength, field, fmt.Sprintf("must be at most %d bytes", MaxPasswordLength))

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
	v.Check(hasSpecial, field, "must contain at least one special character")
}

// Err folds the collected errors into an INVALID_REQUEST domain error, or
// returns nil when there are none.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Error()
	}
	return &apperrors.DomainError{
		Code:    apperrors.ErrInvalidRequest.Code,
		Message: strings.Join(msgs, "; "),
	}
}

func IsPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// IsCardNumber reports whether s is exactly ten ASCII digits.
func IsCardNumber(s string) bool {
	return cardRegex.MatchString(s)
}
