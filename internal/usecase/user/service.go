package user

import (
	"context"
	"errors"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAccessLevelNotFound = errors.New("access level not found")
	ErrInternal            = errors.New("internal error")
)

type AccessLevels interface {
	GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error)
}

type Service struct {
	users  user.Repository
	levels AccessLevels
}

func NewService(users user.Repository, levels AccessLevels) *Service {
	return &Service{users: users, levels: levels}
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (user.User, error) {
	usr, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, ErrInternal
	}
	return sanitizeUser(usr), nil
}

// SetAccessLevel points the user at accessLevelID, or clears the reference
// when it is nil.
func (s *Service) SetAccessLevel(ctx context.Context, userID uuid.UUID, accessLevelID *uuid.UUID) (user.User, error) {
	if accessLevelID != nil {
		if _, err := s.levels.GetByID(ctx, *accessLevelID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return user.User{}, ErrAccessLevelNotFound
			}
			return user.User{}, ErrInternal
		}
	}

	if err := s.users.SetAccessLevel(ctx, userID, accessLevelID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, ErrInternal
	}

	usr, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return user.User{}, ErrInternal
	}
	return sanitizeUser(usr), nil
}

func sanitizeUser(u user.User) user.User {
	u.PasswordHash = ""
	return u
}
