package handler

import (
	"errors"
	"strings"
	"time"

	"skill-registry/internal/delivery/http/middleware"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"
	ucauth "skill-registry/internal/usecase/auth"
	ucuser "skill-registry/internal/usecase/user"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

var notFoundMessages = []struct {
	err error
	msg string
}{
	{usecase.ErrUserNotFound, "User not found"},
	{ucuser.ErrUserNotFound, "User not found"},
	{usecase.ErrMenuOptionNotFound, "Menu option not found"},
	{usecase.ErrAccessLevelNotFound, "Access level not found"},
	{ucuser.ErrAccessLevelNotFound, "Access level not found"},
	{ucauth.ErrAccessLevelNotFound, "Access level not found"},
	{usecase.ErrSkillNotFound, "Skill not found"},
	{usecase.ErrEvaluationNotFound, "Evaluation not found"},
	{usecase.ErrProfileNotFound, "Profile not found"},
	{usecase.ErrEntryNotFound, "Entry not found"},
	{usecase.ErrGithubProfileNotFound, "No Github profile found"},
}

var conflictMessages = []struct {
	err error
	msg string
}{
	{usecase.ErrCycle, "Menu option parent chain would form a cycle"},
	{usecase.ErrMenuOptionInUse, "Menu option has children or is granted by an access level"},
	{usecase.ErrNameTaken, "Name already in use"},
	{usecase.ErrProfileDeleting, "Profile is being deleted"},
	{usecase.ErrDivergentRead, "Evaluation ledger and skill log disagree"},
	{ucauth.ErrEmailAlreadyRegistered, "Email already registered"},
}

// mapUsecaseError converts usecase errors into AppErrors. Validation errors
// carry their field list as response data.
func mapUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	var verr *usecase.ValidationError
	if errors.As(err, &verr) {
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", verr.Fields, err)
	}
	var ierr *ucauth.InputError
	if errors.As(err, &ierr) {
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", []usecase.FieldError{{Field: ierr.Field, Message: ierr.Message}}, err)
	}

	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.err) {
			return middleware.NewAppError(fiber.StatusNotFound, nf.msg, nil, err)
		}
	}
	for _, cf := range conflictMessages {
		if errors.Is(err, cf.err) {
			return middleware.NewAppError(fiber.StatusConflict, cf.msg, nil, err)
		}
	}

	switch {
	case errors.Is(err, usecase.ErrConflict):
		return middleware.NewAppError(fiber.StatusConflict, response.MessageConflict, nil, err)
	case errors.Is(err, ucauth.ErrEmailDomainNotAllowed):
		return middleware.NewAppError(fiber.StatusBadRequest, "Email domain not allowed", nil, err)
	case errors.Is(err, usecase.ErrInvalidInput), errors.Is(err, ucauth.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	case errors.Is(err, ucauth.ErrInvalidCredentials), errors.Is(err, usecase.ErrUnauthorized):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}

func actingUser(c fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return id, nil
}

func pathID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+name, []usecase.FieldError{{Field: name, Message: "must be a uuid"}}, err)
	}
	return id, nil
}

func bindBody(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request payload", nil, err)
	}
	return nil
}

func strictQuery(c fiber.Ctx) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query("strict")))
	return v == "1" || v == "true" || v == "yes"
}

// fieldErrors collects request decoding problems in the same shape as
// usecase validation.
type fieldErrors struct {
	v usecase.ValidationError
}

func (f *fieldErrors) add(field, message string) {
	f.v.Add(field, message)
}

func (f *fieldErrors) err() error {
	if len(f.v.Fields) == 0 {
		return nil
	}
	return mapUsecaseError(&f.v)
}

func (f *fieldErrors) uuid(field, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		f.add(field, "is required")
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		f.add(field, "must be a uuid")
		return uuid.Nil
	}
	return id
}

func (f *fieldErrors) optionalUUID(field string, raw *string) *uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		f.add(field, "must be a uuid")
		return nil
	}
	return &id
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// date accepts RFC 3339 timestamps and calendar dates. An empty value yields
// the zero time and is left to usecase validation.
func (f *fieldErrors) date(field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	f.add(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	return time.Time{}
}

func (f *fieldErrors) optionalDate(field string, raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t := f.date(field, *raw)
	if t.IsZero() {
		return nil
	}
	return &t
}
