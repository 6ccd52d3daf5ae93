package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/core/security"
)

type AccountHandler struct {
	Ledger storage.LedgerStore
	Keys   storage.KeyStore
}

// GenerateKey mints a merchant API key for an account and stores only its
// hash. The real key is shown exactly once.
func (h *AccountHandler) GenerateKey(c *fiber.Ctx) error {
	accountID := c.Params("id")
	if accountID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "account id is required"})
	}

	if _, err := h.Ledger.EnsureAccount(c.Context(), accountID); err != nil {
		slog.Error("ensure account failed", "account_id", accountID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	realKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		slog.Error("crypto error generating key", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if err := h.Keys.SaveAPIKey(c.Context(), accountID, keyHash); err != nil {
		slog.Error("failed to save api key", "account_id", accountID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	slog.Info("api key generated", "account_id", accountID)

	return c.JSON(fiber.Map{
		"api_key": realKey,
		"warning": "save this now, it will not be shown again",
	})
}
