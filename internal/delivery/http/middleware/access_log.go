package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type AccessLogMiddleware struct {
	logger *log.Logger
	quiet  map[string]struct{}
}

// NewAccessLogMiddleware logs one line per request. Successful requests to
// quietPaths (health checks and metric scrapes) are not logged.
func NewAccessLogMiddleware(logger *log.Logger, quietPaths ...string) *AccessLogMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &AccessLogMiddleware{logger: logger, quiet: quiet}
}

// RequestID returns the id assigned to the current request.
func RequestID(c fiber.Ctx) string {
	return c.Get(fiber.HeaderXRequestID)
}

func ensureRequestID(c fiber.Ctx) string {
	rid := RequestID(c)
	if rid == "" {
		rid = uuid.NewString()
		c.Request().Header.Set(fiber.HeaderXRequestID, rid)
	}
	c.Set(fiber.HeaderXRequestID, rid)
	return rid
}

func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		rid := ensureRequestID(c)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil && status < fiber.StatusBadRequest {
			status = fiber.StatusInternalServerError
		}
		if _, ok := m.quiet[c.Path()]; ok && status < fiber.StatusBadRequest {
			return err
		}

		user := "-"
		if id, ok := UserID(c); ok {
			user = id.String()
		}
		m.logger.Printf("[HTTP] %s %s status=%d latency=%s rid=%s user=%s ip=%s bytes=%d",
			c.Method(), c.OriginalURL(), status, time.Since(start).Round(time.Microsecond),
			rid, user, c.IP(), len(c.Response().Body()))

		return err
	}
}
