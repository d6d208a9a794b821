package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"skill-registry/internal/config"
	"skill-registry/internal/delivery/http/handler"
	"skill-registry/internal/delivery/http/middleware"
	"skill-registry/internal/delivery/http/routes"
	v1 "skill-registry/internal/delivery/http/routes/v1"
	"skill-registry/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// New builds the HTTP application on an already wired container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container, applies seeds and starts the websocket hub.
// The returned cleanup stops the hub and closes every connection.
func Bootstrap(cfg config.Config) (*App, func() error, error) {
	logger := log.Default()

	initCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := NewContainer(initCtx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Seed(initCtx); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("seed failed: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	go c.Hub.Run(hubCtx)

	cleanup := func() error {
		stopHub()
		return c.Close()
	}
	return New(c), cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(c.Logger, "/health", "/metrics").Middleware())
	app.Use(c.Metrics.Middleware())
	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	uc := c.Usecases
	health := handler.NewHealthHandler(
		handler.Check{Name: "store", Required: true, Ping: c.PingStore},
		handler.Check{Name: "cache", Ping: c.Cache.Ping},
	)

	api := v1.Handlers{
		Auth:           handler.NewAuthHandler(uc.Auth),
		Users:          handler.NewUserHandler(uc.Users, uc.AccessLevels),
		MenuOptions:    handler.NewMenuOptionHandler(uc.MenuOptions),
		AccessLevels:   handler.NewAccessLevelHandler(uc.AccessLevels),
		Skills:         handler.NewSkillHandler(uc.Skills, uc.Evaluations),
		Evaluations:    handler.NewEvaluationHandler(uc.Evaluations),
		Profiles:       handler.NewProfileHandler(uc.Profiles, uc.Evaluations, uc.Cascade, uc.Github, c.Logger),
		AuthMiddleware: middleware.NewAuthMiddleware(c.JWT),
	}

	routes.NewRegistry(health, c.Metrics, ws.NewHandler(c.Hub, c.Logger, c.Config.App.WSAllowedOrigins...), api).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}

func metricsNamespace(appName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(appName)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	ns := strings.Trim(b.String(), "_")
	if ns == "" || (ns[0] >= '0' && ns[0] <= '9') {
		return "skill_registry"
	}
	return ns
}
