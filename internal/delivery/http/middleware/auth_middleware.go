package middleware

import (
	"errors"
	"strings"

	"skill-registry/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const subjectKey = "auth_subject"

// AuthMiddleware admits requests that carry a valid access token and stores
// the token subject for the handlers.
type AuthMiddleware struct {
	jwt jwt.Service
}

func NewAuthMiddleware(jwtSvc jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtSvc}
}

func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := m.jwt.ValidateToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
		case err != nil:
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		case claims.TokenType != jwt.TokenTypeAccess, claims.UserID == uuid.Nil:
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, nil)
		}

		c.Locals(subjectKey, jwt.Subject{
			UserID:        claims.UserID,
			Email:         claims.Email,
			AccessLevelID: claims.AccessLevelID,
		})
		return c.Next()
	}
}

// Subject returns the verified identity set by Middleware.
func Subject(c fiber.Ctx) (jwt.Subject, bool) {
	sub, ok := c.Locals(subjectKey).(jwt.Subject)
	return sub, ok
}

func UserID(c fiber.Ctx) (uuid.UUID, bool) {
	sub, ok := Subject(c)
	return sub.UserID, ok && sub.UserID != uuid.Nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
