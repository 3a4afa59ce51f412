package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware gates requests behind a shared token when
// SERVICE_TOKEN is set. Left unset, the widget runs open for local use.
func ServiceTokenMiddleware() fiber.Handler {
	expectedToken := os.Getenv("SERVICE_TOKEN")
	if expectedToken == "" {
		log.Println("⚠️  SERVICE_TOKEN not set — running without request authentication")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Service-Token")
		if token == "" {
			// EventSource can't set headers; allow the token as a query
			// parameter on stream endpoints.
			token = c.Query("token")
		}
		if token == "" {
			authHeader := c.Get("Authorization")
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if token != expectedToken {
			log.Printf("🚫 [AUTH] Rejected request for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
