package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailDuplicate = errors.New("email already registered")
)

type Repository interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SetAccessLevel(ctx context.Context, id uuid.UUID, accessLevelID *uuid.UUID) error
	// ClearAccessLevel drops the reference from every user pointing at accessLevelID.
	ClearAccessLevel(ctx context.Context, accessLevelID uuid.UUID) (int64, error)
}
