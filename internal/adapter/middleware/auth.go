package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/core/security"
)

// Protected authenticates client-facing routes with a merchant API key
// ("Authorization: Bearer lp_live_..."). Only the key's hash is ever
// compared or stored.
func Protected(keys storage.KeyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing API key"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid Authorization header"})
		}

		accountID, ok, err := keys.AccountIDForKeyHash(c.Context(), security.HashAPIKey(parts[1]))
		if err != nil || !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid API key"})
		}

		c.Locals("merchant_id", accountID)
		return c.Next()
	}
}
