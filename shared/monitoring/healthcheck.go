package monitoring

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type HealthServer struct {
	monitor *Monitor
	port    int
	app     *fiber.App
}

func NewHealthServer(monitor *Monitor, port int) *HealthServer {
	if port == 0 {
		port = 8080
	}

	h := &HealthServer{
		monitor: monitor,
		port:    port,
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
	}
	h.app.Get("/health", h.healthHandler)
	h.app.Get("/status", h.statusHandler)
	return h
}

// App exposes the underlying fiber app for tests.
func (h *HealthServer) App() *fiber.App {
	return h.app
}

// Start listens in the background.
func (h *HealthServer) Start() {
	addr := fmt.Sprintf(":%d", h.port)
	log.Info().Str("addr", addr).Msg("Health check server starting")
	go func() {
		if err := h.app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("Health server error")
		}
	}()
}

func (h *HealthServer) Shutdown() error {
	return h.app.Shutdown()
}

func (h *HealthServer) healthHandler(c *fiber.Ctx) error {
	if h.monitor.IsHealthy() {
		return c.Status(fiber.StatusOK).SendString("OK - " + h.monitor.GetStatusSummary())
	}
	return c.Status(fiber.StatusServiceUnavailable).SendString("Service unhealthy - " + h.monitor.GetStatusSummary())
}

func (h *HealthServer) statusHandler(c *fiber.Ctx) error {
	return c.JSON(h.monitor.Status())
}
