package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/core/cart"
	"github.com/ibrahimkeyboad/maxen/internal/core/order"
)

type OrderHandler struct {
	Orders *order.Processor
	Carts  *cart.Ledger
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// Checkout buys the caller's current cart.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	accountID := middleware.AccountID(c)
	snapshot := h.Carts.Snapshot(c.UserContext(), accountID)
	o, err := h.Orders.Checkout(c.UserContext(), accountID, snapshot, req.PaymentMethod)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(o)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.Orders.List(c.UserContext(), middleware.AccountID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.Orders.Get(c.UserContext(), middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(o)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.Orders.Cancel(c.UserContext(), middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(o)
}

// Fulfill marks a manual-delivery order as delivered. Admin only.
func (h *OrderHandler) Fulfill(c *fiber.Ctx) error {
	o, err := h.Orders.Fulfill(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(o)
}
