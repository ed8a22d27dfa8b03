package errs

import (
	"fmt"
	"net/http"
	"strings"

	"lobbychat/internal/pkg/logx"
)

// CustomError is the application error carried to HTTP responses and websocket ERROR frames.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-facing error description.
	Message string

	// Status is the HTTP status code used when the error ends an HTTP request.
	Status int

	// Fields names the input fields the error applies to, if any.
	Fields []string
}

// Error implements the error interface.
func (e CustomError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("Error Code %d (HTTP %d): %s [%s]", e.Code, e.Status, e.Message, strings.Join(e.Fields, ","))
	}
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is reports whether target is a CustomError with the same code, so callers can
// match with errors.Is(err, errs.NewError(errs.ErrNotJoined)).
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithFields returns a copy of the error tagged with the given input field names.
func (e *CustomError) WithFields(fields ...string) *CustomError {
	c := *e
	c.Fields = append([]string(nil), fields...)
	return &c
}

// NewError builds a *CustomError from a predefined code.
// details are printf arguments for the message template; for ErrUnknown the first
// detail may be the underlying error, which is logged and not shown to clients.
// An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.")
		}
	}

	return &customErr
}
