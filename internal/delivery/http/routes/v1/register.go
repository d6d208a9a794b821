package v1

import (
	"skill-registry/internal/delivery/http/handler"
	"skill-registry/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	MenuOptions  *handler.MenuOptionHandler
	AccessLevels *handler.AccessLevelHandler
	Skills       *handler.SkillHandler
	Evaluations  *handler.EvaluationHandler
	Profiles     *handler.ProfileHandler

	AuthMiddleware *middleware.AuthMiddleware
}

// Register mounts /auth publicly and everything else behind the bearer
// token middleware. The protected group checks authentication only: any
// signed-in user may call the administrative routes (access levels, menu
// options, PUT /users/:id/access-level). ResolvePermissions is exposed for
// clients to gate their menus; it is not enforced here.
func Register(r fiber.Router, h Handlers) {
	if r == nil {
		return
	}

	if h.Auth != nil {
		h.Auth.RegisterRoutes(r.Group("/auth"))
	}

	protected := r
	if h.AuthMiddleware != nil {
		protected = r.Group("", h.AuthMiddleware.Middleware())
	}

	if h.Users != nil {
		h.Users.RegisterRoutes(protected.Group("/users"))
	}
	if h.MenuOptions != nil {
		h.MenuOptions.RegisterRoutes(protected)
	}
	if h.AccessLevels != nil {
		h.AccessLevels.RegisterRoutes(protected)
	}
	if h.Skills != nil {
		h.Skills.RegisterRoutes(protected)
	}
	if h.Evaluations != nil {
		h.Evaluations.RegisterRoutes(protected)
	}
	if h.Profiles != nil {
		h.Profiles.RegisterRoutes(protected)
	}
}
