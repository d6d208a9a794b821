package handler

import (
	"context"
	"sort"
	"time"

	"skill-registry/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// Check pings one dependency. Required checks turn the endpoint unhealthy;
// the others are only reported.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []Check
	timeout time.Duration
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/health", h.Health)
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	res := healthResponse{Status: "up", Components: make(map[string]componentStatus, len(h.checks))}
	status := fiber.StatusOK
	for _, chk := range h.checks {
		if chk.Ping == nil {
			continue
		}
		if err := chk.Ping(ctx); err != nil {
			res.Components[chk.Name] = componentStatus{Status: "down", Error: err.Error()}
			if chk.Required {
				res.Status = "down"
				status = fiber.StatusServiceUnavailable
			} else if res.Status == "up" {
				res.Status = "degraded"
			}
			continue
		}
		res.Components[chk.Name] = componentStatus{Status: "up"}
	}

	if status != fiber.StatusOK {
		return response.Error(c, status, "Service unavailable", res)
	}
	return response.Success(c, status, response.MessageOK, res)
}
