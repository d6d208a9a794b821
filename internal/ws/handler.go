package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
)

// Handler upgrades /ws/events requests and attaches them to the hub as
// receive-only subscribers. ?types=a,b narrows the stream to those events.
type Handler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler accepts any origin when allowedOrigins is empty. Otherwise the
// Origin header must match one entry, case-insensitively.
func NewHandler(hub *Hub, logger *log.Logger, allowedOrigins ...string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[strings.ToLower(r.Header.Get("Origin"))]
				return ok
			},
		},
	}
}

func (h *Handler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/ws/events", h.HandleEvents)
}

func (h *Handler) HandleEvents(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}
	return adaptor.HTTPHandlerFunc(h.serve)(c)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[WS] upgrade rejected origin=%q err=%v", r.Header.Get("Origin"), err)
		}
		return
	}

	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	client := NewClient(h.hub, conn, types...)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
