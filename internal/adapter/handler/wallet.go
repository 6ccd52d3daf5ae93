package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/core/payments"
)

type WalletHandler struct {
	Service *payments.Service
}

// GetWallet returns the balance and transaction history for an account.
// Read-only; the account is created lazily on first reference.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	accountID := c.Params("id")

	wallet, err := h.Service.GetWallet(c.Context(), accountID)
	if err != nil {
		slog.Warn("wallet read failed", "account_id", accountID, "error", err)
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.JSON(wallet)
}
