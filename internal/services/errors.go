package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

// Error categories. Handlers map these to HTTP status codes.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("authentication required")
	ErrForbidden        = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// Domain errors unwrap to one of the categories above
var (
	ErrStudentNotFound    = fmt.Errorf("student %w", ErrNotFound)
	ErrMarksNotFound      = fmt.Errorf("marks %w", ErrNotFound)
	ErrAttendanceNotFound = fmt.Errorf("attendance %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrPhotoNotFound      = fmt.Errorf("photo %w", ErrNotFound)

	ErrDuplicateRoll       = fmt.Errorf("%w: a student with this roll number already exists", ErrConflict)
	ErrDuplicateMarks      = fmt.Errorf("%w: marks for this student and class already exist", ErrConflict)
	ErrDuplicateAttendance = fmt.Errorf("%w: attendance for this student has already been marked today", ErrConflict)
	ErrDuplicateUsername   = fmt.Errorf("%w: a user with that username already exists", ErrConflict)

	ErrMissingCredentials = fmt.Errorf("%w: please provide both username and password", ErrValidationFailed)
	ErrMissingToken       = fmt.Errorf("%w: refresh token is required", ErrValidationFailed)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	ErrTeacherRequired    = fmt.Errorf("%w: only teachers can mark attendance", ErrForbidden)
)

// ValidationErrors is the field-level error list returned by the validator
type ValidationErrors = validator.ValidationErrors

// validationFailure carries field errors and matches ErrValidationFailed
type validationFailure struct {
	ValidationErrors
}

func (v validationFailure) Is(target error) bool { return target == ErrValidationFailed }
func (v validationFailure) Unwrap() error        { return v.ValidationErrors }

func newValidationError(errs ValidationErrors) error {
	return validationFailure{ValidationErrors: errs}
}

func fieldError(field, message string) error {
	return newValidationError(ValidationErrors{{Field: field, Message: message}})
}

// Authorize turns a policy decision into ErrUnauthorized for anonymous callers
// and ErrForbidden for everyone else
func Authorize(p *models.Principal, action policy.Action, resource policy.Resource) error {
	if policy.Authorize(p, action, resource) == policy.Allow {
		return nil
	}
	if p == nil {
		return ErrUnauthorized
	}
	return ErrForbidden
}

func asValidationError(err error) error {
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return newValidationError(errs)
	}
	return newValidationError(validator.ToValidationErrors(err))
}
