package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/adapter/storage"
)

// Idempotency replays the cached response for a repeated Idempotency-Key
// header. This is transport-level replay protection for client retries; the
// ledger's terminal-status compare-and-set remains the backstop underneath.
func Idempotency(store storage.IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		status, body, ok, err := store.LookupIdempotencyKey(c.Context(), key)
		if err != nil {
			slog.Error("idempotency lookup failed", "key", key, "error", err)
			return c.Next()
		}
		if ok {
			slog.Info("idempotency hit, replaying cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		// fasthttp reuses the response buffer after the handler returns.
		resBody := append([]byte(nil), c.Response().Body()...)

		if err := store.SaveIdempotencyKey(c.Context(), key, resStatus, resBody); err != nil {
			slog.Error("failed to save idempotency key", "key", key, "error", err)
		}
		return nil
	}
}
