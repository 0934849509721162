package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

type CatalogHandler struct {
	Catalog ports.Catalog
}

// ListProducts supports ?q=, ?category=<slug>, ?region= and ?sort=.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.Catalog.ListProducts(c.UserContext(), ports.ProductFilter{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Region:   c.Query("region"),
		Sort:     ports.ProductSort(c.Query("sort")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.Catalog.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if p == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	return c.JSON(p)
}

func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}
