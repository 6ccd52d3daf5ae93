package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/core/domain"
	"github.com/tieiiikw/Laampay/internal/core/payments"
)

type PaymentHandler struct {
	Service *payments.Service
}

type DepositRequest struct {
	AccountID string `json:"account_id"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount"` // minor units
}

type WithdrawRequest struct {
	AccountID   string `json:"account_id"`
	Bank        string `json:"bank"`
	BankAccount string `json:"bank_account"`
	Amount      int64  `json:"amount"`
}

// Deposit starts a provider-checkout deposit. The balance is not credited
// here; that happens when the signed callback confirms the payment.
func (h *PaymentHandler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("invalid deposit body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.Service.Deposit(c.Context(), req.AccountID, req.Phone, req.Amount)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"transaction_id": result.TransactionID,
		"checkout_url":   result.CheckoutURL,
		"amount":         domain.NewMoney(req.Amount),
		"status":         "pending",
	})
}

// Withdraw reserves funds immediately and completes asynchronously.
func (h *PaymentHandler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("invalid withdraw body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.Service.Withdraw(c.Context(), req.AccountID, req.Bank, req.BankAccount, req.Amount)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"transaction_id": result.TransactionID,
		"amount":         domain.NewMoney(req.Amount),
		"status":         "processing",
	})
}
