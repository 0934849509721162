package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/security"
)

const (
	LocalAccountID = "account_id"
	LocalSessionID = "session_id"
)

// SessionResolver maps a session id to its signed-in account.
type SessionResolver interface {
	CurrentAccount(ctx context.Context, sessionID string) (*domain.Account, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Protected rejects requests without a live session and stores the account
// and session ids in Locals.
func Protected(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing or malformed session token"})
		}

		sessionID := security.HashToken(token)
		acc, err := sessions.CurrentAccount(c.UserContext(), sessionID)
		if err != nil {
			slog.Error("session lookup failed", "error", err)
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "Session store unavailable"})
		}
		if acc == nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired or signed out"})
		}

		c.Locals(LocalAccountID, acc.ID)
		c.Locals(LocalSessionID, sessionID)
		return c.Next()
	}
}

// AccountID returns the account stored by Protected.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalAccountID).(string)
	return id
}

// SessionID returns the session stored by Protected.
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalSessionID).(string)
	return id
}
