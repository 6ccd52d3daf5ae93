package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/core/payments"
)

type CallbackHandler struct {
	Service *payments.Service
}

// ProviderCallback receives the provider's signed payment notification.
//
// The body is passed to the core as the exact raw bytes received, with the
// detached signature from the Signature header. Duplicates and unknown
// correlation ids are acknowledged with 200 so the provider stops retrying;
// only authentication failures and malformed payloads are rejected.
func (h *CallbackHandler) ProviderCallback(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("Signature")
	if signature == "" {
		signature = c.Get("X-Signature")
	}

	result, err := h.Service.HandleCallback(c.Context(), rawBody, signature)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"acknowledged":   true,
		"outcome":        result.Outcome,
		"transaction_id": result.TransactionID,
	})
}
