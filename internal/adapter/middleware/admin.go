package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/core/security"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminKey admits requests carrying the operator key in X-Admin-Key. An empty
// key rejects everything.
func AdminKey(key string) fiber.Handler {
	keyHash := security.HashToken(key)
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "Admin API disabled"})
		}
		presented := c.Get(HeaderAdminKey)
		if presented == "" || !security.ValidateToken(presented, keyHash) {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid admin key"})
		}
		return c.Next()
	}
}
