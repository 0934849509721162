package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/wallet"
)

type WalletHandler struct {
	Wallet *wallet.Ledger
}

type topUpRequest struct {
	Amount int64                `json:"amount"`
	Method domain.PaymentMethod `json:"method"`
}

func (h *WalletHandler) Summary(c *fiber.Ctx) error {
	s, err := h.Wallet.Summary(c.UserContext(), middleware.AccountID(c), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s)
}

// TopUp answers 202: the transaction is pending until the gateway confirms.
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	accountID := middleware.AccountID(c)
	slog.Info("Top-up request", "account_id", accountID, "amount", req.Amount, "method", req.Method.Kind)

	tx, err := h.Wallet.TopUp(c.UserContext(), accountID, req.Amount, req.Method)
	if errors.Is(err, domain.ErrPaymentDeclined) && tx != nil {
		return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error(), "transaction": tx})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status":      "pending",
		"message":     "Payment started. Confirm it with your provider.",
		"transaction": tx,
	})
}

func (h *WalletHandler) History(c *fiber.Ctx) error {
	history, err := h.Wallet.History(c.UserContext(), middleware.AccountID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": history})
}

func (h *WalletHandler) Packages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"packages": domain.TopUpPackages})
}
