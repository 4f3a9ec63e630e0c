package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request at info level. It is a no-op when
// the global level is above info.
func RequestLogger() fiber.Handler {
	shouldLog := zerolog.GlobalLevel() <= zerolog.InfoLevel

	return func(c *fiber.Ctx) error {
		if !shouldLog {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		event := log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", c.Response().StatusCode()).
			Int64("latency_us", time.Since(start).Microseconds()).
			Int("bytes_in", len(c.Body())).
			Int("bytes_out", len(c.Response().Body()))
		if trader := c.Get(TraderHeader); trader != "" {
			event = event.Str("trader", trader)
		}
		event.Msg("HTTP request")

		return err
	}
}
