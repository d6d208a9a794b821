package usecase

import (
	"context"
	"errors"

	"skill-registry/internal/domain/user"
	"skill-registry/internal/pkg/jwt"
	ucauth "skill-registry/internal/usecase/auth"
)

type AuthUsecase interface {
	Register(ctx context.Context, in ucauth.RegisterInput) (user.User, string, string, error)
	Login(ctx context.Context, in ucauth.LoginInput) (user.User, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
}

// Auth pairs the credential checks in ucauth with token issuance. Access
// tokens carry the user's access level at issue time.
type Auth struct {
	creds *ucauth.Service
	users user.Repository
	jwt   jwt.Service
}

func NewAuthUsecase(users user.Repository, levels ucauth.AccessLevels, jwtSvc jwt.Service, emailDomain string) *Auth {
	return &Auth{creds: ucauth.NewService(users, levels, emailDomain), users: users, jwt: jwtSvc}
}

func (u *Auth) Register(ctx context.Context, in ucauth.RegisterInput) (user.User, string, string, error) {
	return u.session(u.creds.Register(ctx, in))
}

func (u *Auth) Login(ctx context.Context, in ucauth.LoginInput) (user.User, string, string, error) {
	return u.session(u.creds.Login(ctx, in))
}

// Refresh trades a valid refresh token for a new pair. The user is reloaded so
// a changed access level or a deleted account takes effect immediately.
func (u *Auth) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if refreshToken == "" {
		return "", "", ErrUnauthorized
	}

	claims, err := u.jwt.ValidateToken(refreshToken)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", "", ErrRefreshTokenExpired
	case err != nil, !u.jwt.IsRefreshToken(claims):
		return "", "", ErrInvalidRefreshToken
	}

	usr, err := u.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", internalError(err)
	}

	_, access, refresh, err := u.session(usr, nil)
	return access, refresh, err
}

func (u *Auth) session(usr user.User, err error) (user.User, string, string, error) {
	if err != nil {
		return user.User{}, "", "", err
	}

	access, err := u.jwt.GenerateAccessToken(jwt.Subject{UserID: usr.ID, Email: usr.Email, AccessLevelID: usr.AccessLevelID})
	if err != nil {
		return user.User{}, "", "", internalError(err)
	}
	refresh, err := u.jwt.GenerateRefreshToken(usr.ID)
	if err != nil {
		return user.User{}, "", "", internalError(err)
	}
	return usr, access, refresh, nil
}
