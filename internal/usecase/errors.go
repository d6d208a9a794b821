package usecase

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	ErrUserNotFound          = errors.New("user not found")
	ErrMenuOptionNotFound    = errors.New("menu option not found")
	ErrAccessLevelNotFound   = errors.New("access level not found")
	ErrSkillNotFound         = errors.New("skill not found")
	ErrEvaluationNotFound    = errors.New("evaluation not found")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrEntryNotFound         = errors.New("entry not found")
	ErrGithubProfileNotFound = errors.New("no github profile found")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	ErrCycle           = fmt.Errorf("%w: menu option parent chain would form a cycle", ErrConflict)
	ErrMenuOptionInUse = fmt.Errorf("%w: menu option has children or is granted by an access level", ErrConflict)
	ErrNameTaken       = fmt.Errorf("%w: name already in use", ErrConflict)
	ErrProfileDeleting = fmt.Errorf("%w: profile is being deleted", ErrConflict)
	ErrDivergentRead   = fmt.Errorf("%w: evaluation ledger and skill log disagree", ErrConflict)
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a request. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e when at least one field was rejected, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidField(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func internalError(err error) error {
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
