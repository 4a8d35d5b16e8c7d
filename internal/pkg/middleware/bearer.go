package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanFox/internal/pkg/tokenstore"
)

// TokenIDKey is the Locals key carrying the authenticated token id.
const TokenIDKey = "TOKEN_ID"

// BearerAuthMiddleware authenticates requests via the Authorization header.
// Missing or malformed headers are 401; a well-formed credential that fails
// token validation is 403. A deployment without any configured tokens is a
// server misconfiguration, not a caller error.
func BearerAuthMiddleware(tokens *tokenstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if auth == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing Authorization header. Include: Authorization: Bearer YOUR_TOKEN",
				"code":    "missing_authorization",
			})
		}

		if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid Authorization header format. Use: Authorization: Bearer YOUR_TOKEN",
				"code":    "invalid_authorization_format",
			})
		}
		rawSecret := strings.TrimSpace(auth[7:])

		count, err := tokens.Count()
		if err != nil {
			log.Printf("bearer middleware: token store unavailable: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Token verification failed",
				"code":    "internal_server_error",
			})
		}
		if count == 0 {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "No API tokens are configured",
				"code":    "no_tokens_configured",
			})
		}

		tokenID, ok := tokens.Validate(rawSecret, c.IP())
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid bearer token",
				"code":    "invalid_token",
			})
		}

		c.Locals(TokenIDKey, tokenID)

		return c.Next()
	}
}

// TokenIDFromContext returns the authenticated token id, or "" when the
// request did not pass through BearerAuthMiddleware.
func TokenIDFromContext(c *fiber.Ctx) string {
	if id, ok := c.Locals(TokenIDKey).(string); ok {
		return id
	}
	return ""
}
