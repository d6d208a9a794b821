package usecase

import (
	"context"
	"log"

	"skill-registry/internal/domain/user"
	ucuser "skill-registry/internal/usecase/user"

	"github.com/google/uuid"
)

type UserUsecase interface {
	GetMe(ctx context.Context, userID uuid.UUID) (user.User, error)
	SetAccessLevel(ctx context.Context, userID uuid.UUID, accessLevelID *uuid.UUID) (user.User, error)
}

type User struct {
	svc    *ucuser.Service
	events EventPublisher
	logger *log.Logger
}

func NewUserUsecase(users user.Repository, levels ucuser.AccessLevels, events EventPublisher, logger *log.Logger) *User {
	return &User{svc: ucuser.NewService(users, levels), events: publisherOrNoop(events), logger: logger}
}

func (u *User) GetMe(ctx context.Context, userID uuid.UUID) (user.User, error) {
	return u.svc.GetMe(ctx, userID)
}

// SetAccessLevel changes which menu options the user may see. Live clients are
// told so they can refetch their permission set.
func (u *User) SetAccessLevel(ctx context.Context, userID uuid.UUID, accessLevelID *uuid.UUID) (user.User, error) {
	usr, err := u.svc.SetAccessLevel(ctx, userID, accessLevelID)
	if err != nil {
		return user.User{}, err
	}

	level := "none"
	if accessLevelID != nil {
		level = accessLevelID.String()
	}
	if u.logger != nil {
		u.logger.Printf("[User] access level changed user=%s level=%s", userID, level)
	}
	u.events.Publish(EventAccessLevelChanged, map[string]any{
		"userId":        userID,
		"accessLevelId": accessLevelID,
	})
	return usr, nil
}
