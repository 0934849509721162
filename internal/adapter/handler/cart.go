package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/core/cart"
)

type CartHandler struct {
	Carts *cart.Ledger
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) render(c *fiber.Ctx, accountID string) error {
	ctx := c.UserContext()
	return c.JSON(fiber.Map{
		"items":       h.Carts.Snapshot(ctx, accountID),
		"total_items": h.Carts.TotalItems(ctx, accountID),
		"total_cost":  h.Carts.TotalCost(ctx, accountID),
	})
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	return h.render(c, middleware.AccountID(c))
}

// AddItem adds one unit unless a quantity is given.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return badRequest(c, "product_id is required")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	accountID := middleware.AccountID(c)
	if err := h.Carts.Add(c.UserContext(), accountID, req.ProductID, quantity); err != nil {
		return respondError(c, err)
	}
	c.Status(http.StatusCreated)
	return h.render(c, accountID)
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	var req quantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	accountID := middleware.AccountID(c)
	if err := h.Carts.SetQuantity(c.UserContext(), accountID, c.Params("productId"), req.Quantity); err != nil {
		return respondError(c, err)
	}
	return h.render(c, accountID)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	accountID := middleware.AccountID(c)
	if err := h.Carts.Remove(c.UserContext(), accountID, c.Params("productId")); err != nil {
		return respondError(c, err)
	}
	return h.render(c, accountID)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	h.Carts.Clear(c.UserContext(), middleware.AccountID(c))
	return c.SendStatus(http.StatusNoContent)
}
