package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// LoginRateLimit limits login attempts per identifier (email or phone)
// or client IP using Redis when available.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			EmailOrPhone string `json:"email_or_phone"`
			Email        string `json:"email"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.EmailOrPhone)
		if key == "" {
			key = strings.TrimSpace(req.Email)
		}
		if key == "" {
			key = c.IP()
		}
		cacheKey := "rl:login:" + strings.ToLower(key)
		cnt, err := cache.Incr(c.UserContext(), cacheKey).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), cacheKey, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
