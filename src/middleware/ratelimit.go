package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// TraderHeader identifies the trader behind a request for rate limiting.
const TraderHeader = "X-Trader"

type window struct {
	number int64
	count  int
}

// RateLimiter allows maxRequests per client in each fixed window.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	windowSize  time.Duration
	clients     map[string]*window
	swept       int64 // last window in which clients was pruned
	now         func() time.Time
}

func NewRateLimiter(maxRequests int, windowSize time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if windowSize <= 0 {
		windowSize = time.Second
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		windowSize:  windowSize,
		clients:     make(map[string]*window),
		now:         time.Now,
	}
}

// clientID prefers the trader header and falls back to the caller's address.
func clientID(c *fiber.Ctx) string {
	if trader := c.Get(TraderHeader); trader != "" {
		return "trader:" + trader
	}
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if ip := c.Get(header); ip != "" {
			return "ip:" + ip
		}
	}
	return "ip:" + c.IP()
}

func (rl *RateLimiter) Allow(client string) bool {
	current := rl.now().UnixNano() / int64(rl.windowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if current != rl.swept {
		for id, w := range rl.clients {
			if w.number < current {
				delete(rl.clients, id)
			}
		}
		rl.swept = current
	}

	w, ok := rl.clients[client]
	if !ok {
		w = &window{}
		rl.clients[client] = w
	}
	if w.number != current {
		w.number, w.count = current, 0
	}
	if w.count >= rl.maxRequests {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	limit := strconv.Itoa(rl.maxRequests)
	size := rl.windowSize.String()

	return func(c *fiber.Ctx) error {
		client := clientID(c)
		if !rl.Allow(client) {
			log.Warn().
				Str("client", client).
				Str("path", c.Path()).
				Int("max_requests", rl.maxRequests).
				Dur("window", rl.windowSize).
				Msg("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Rate limit exceeded",
				"message": "Too many requests for this trader. Please try again later.",
			})
		}

		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Window", size)
		return c.Next()
	}
}
