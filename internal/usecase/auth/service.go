// Package auth checks credentials. Token issuance lives in the usecase layer.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"
)

const minPasswordLength = 6

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrEmailDomainNotAllowed  = errors.New("email domain not allowed")
	ErrAccessLevelNotFound    = errors.New("access level not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal error")
)

// InputError names the registration field that was rejected.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return "invalid input: " + e.Field + " " + e.Message }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

type RegisterInput struct {
	Email         string
	Password      string
	AccessLevelID *uuid.UUID
}

type LoginInput struct {
	Email    string
	Password string
}

// AccessLevels is the lookup used to validate the level picked at sign-up.
type AccessLevels interface {
	GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error)
}

type Service struct {
	users  user.Repository
	levels AccessLevels

	// emailDomain, when set, is the only domain allowed to register.
	emailDomain string
	cost        int
}

func NewService(users user.Repository, levels AccessLevels, emailDomain string) *Service {
	return &Service{
		users:       users,
		levels:      levels,
		emailDomain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(emailDomain)), "@"),
		cost:        bcrypt.DefaultCost,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	email, err := s.checkRegistration(in)
	if err != nil {
		return user.User{}, err
	}
	if err := s.checkAccessLevel(ctx, in.AccessLevelID); err != nil {
		return user.User{}, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return user.User{}, ErrInternal
	}
	if exists {
		return user.User{}, ErrEmailAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return user.User{}, ErrInternal
	}

	now := time.Now().UTC()
	u := user.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  string(hash),
		AccessLevelID: in.AccessLevelID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch err := s.users.CreateUser(ctx, u); {
	case errors.Is(err, user.ErrEmailDuplicate):
		return user.User{}, ErrEmailAlreadyRegistered
	case err != nil:
		return user.User{}, ErrInternal
	}

	created, err := s.users.GetUserByID(ctx, u.ID)
	if err != nil {
		return user.User{}, ErrInternal
	}
	return sanitizeUser(created), nil
}

// checkRegistration returns the normalized email.
func (s *Service) checkRegistration(in RegisterInput) (string, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return "", &InputError{Field: "email", Message: "is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", &InputError{Field: "email", Message: "must be a valid address"}
	}
	if len(strings.TrimSpace(in.Password)) < minPasswordLength {
		return "", &InputError{Field: "password", Message: "must be at least 6 characters"}
	}
	if s.emailDomain != "" && !strings.HasSuffix(email, "@"+s.emailDomain) {
		return "", ErrEmailDomainNotAllowed
	}
	return email, nil
}

func (s *Service) checkAccessLevel(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if s.levels == nil {
		return ErrAccessLevelNotFound
	}
	_, err := s.levels.GetByID(ctx, *id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrAccessLevelNotFound
	case err != nil:
		return ErrInternal
	}
	return nil
}

// Login answers ErrInvalidCredentials for unknown emails and wrong passwords
// alike.
func (s *Service) Login(ctx context.Context, in LoginInput) (user.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return user.User{}, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return user.User{}, ErrInvalidCredentials
	case err != nil:
		return user.User{}, ErrInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return sanitizeUser(u), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(u user.User) user.User {
	u.PasswordHash = ""
	return u
}
