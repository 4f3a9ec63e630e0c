package middleware

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ServiceAvailability answers 503 while in maintenance or once more than
// maxInFlight requests are being served. /health always passes.
type ServiceAvailability struct {
	maintenance atomic.Bool
	maxInFlight int64
	inFlight    atomic.Int64
}

func NewServiceAvailability(maxInFlight int64, maintenance bool) *ServiceAvailability {
	sa := &ServiceAvailability{maxInFlight: maxInFlight}
	sa.maintenance.Store(maintenance)

	event := log.Info().Int64("max_concurrent_requests", maxInFlight).Bool("maintenance", maintenance)
	if maintenance {
		event = log.Warn().Int64("max_concurrent_requests", maxInFlight).Bool("maintenance", maintenance)
	}
	event.Msg("Service availability gate configured")
	return sa
}

func (sa *ServiceAvailability) SetMaintenanceMode(enabled bool) {
	sa.maintenance.Store(enabled)
	log.Warn().Bool("maintenance", enabled).Msg("Service maintenance mode changed")
}

func (sa *ServiceAvailability) IsMaintenanceMode() bool {
	return sa.maintenance.Load()
}

func (sa *ServiceAvailability) GetInFlightRequests() int64 {
	return sa.inFlight.Load()
}

// acquire takes an in-flight slot, failing when the limit is already reached.
func (sa *ServiceAvailability) acquire() bool {
	n := sa.inFlight.Add(1)
	if sa.maxInFlight > 0 && n > sa.maxInFlight {
		sa.inFlight.Add(-1)
		return false
	}
	return true
}

func (sa *ServiceAvailability) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}
		if sa.maintenance.Load() {
			return unavailable(c, "maintenance", "The exchange is undergoing maintenance. Please try again later.")
		}
		if !sa.acquire() {
			return unavailable(c, "overload", "The exchange is overloaded. Please try again later.")
		}
		defer sa.inFlight.Add(-1)

		return c.Next()
	}
}

func unavailable(c *fiber.Ctx, reason, message string) error {
	log.Warn().
		Str("reason", reason).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Str("ip", c.IP()).
		Msg("Request rejected: service unavailable")
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "Service unavailable",
		"reason":  reason,
		"message": message,
	})
}
