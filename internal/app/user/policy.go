package user

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	// MinPasswordLength is the minimum password length in characters.
	MinPasswordLength = 8

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72

	// ForbiddenPasswordChars may not appear anywhere in a password.
	// This rejects punctuation rather than requiring it; see DESIGN.md.
	ForbiddenPasswordChars = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?`~"
)

var (
	// ErrPasswordTooShort is returned for passwords under MinPasswordLength characters.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrPasswordTooLong is returned for passwords over MaxPasswordBytes bytes.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrPasswordForbiddenChar is returned for passwords containing a ForbiddenPasswordChars character.
	ErrPasswordForbiddenChar = errors.New("password contains a forbidden character")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Signup is the input of the signup flow.
type Signup struct {
	Username string `json:"username" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,max=120"`
	Password string `json:"password" validate:"required"`
}

// FieldError lists the signup fields that failed structural validation.
type FieldError struct {
	// Missing holds the json names of empty required fields.
	Missing []string

	// Invalid holds the json names of fields that are present but malformed.
	Invalid []string
}

func (e *FieldError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ","))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ","))
	}
	return "signup validation failed (" + strings.Join(parts, "; ") + ")"
}

// jsonNames maps struct field names to the names clients use.
var jsonNames = map[string]string{
	"Username": "username",
	"Email":    "email",
	"Password": "password",
}

// ValidateSignup checks the signup input before it reaches the store.
// Structural problems come back as *FieldError; password policy violations as
// one of the ErrPassword* sentinels.
func ValidateSignup(in Signup) error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		fe := &FieldError{}
		for _, v := range verrs {
			name := jsonNames[v.StructField()]
			if v.Tag() == "required" {
				fe.Missing = append(fe.Missing, name)
			} else {
				fe.Invalid = append(fe.Invalid, name)
			}
		}
		return fe
	}

	return ValidatePassword(in.Password)
}

// ValidatePassword applies the signup password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	if lo.ContainsBy([]rune(password), func(r rune) bool {
		return strings.ContainsRune(ForbiddenPasswordChars, r)
	}) {
		return ErrPasswordForbiddenChar
	}

	return nil
}
