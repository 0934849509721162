package middleware

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the calling account; only non-5xx responses are kept.
func Idempotency(store ports.KeyValueStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}
		storeKey := "idempotency:" + AccountID(c) + ":" + c.Path() + ":" + key

		raw, err := store.Get(c.UserContext(), storeKey)
		if err != nil {
			slog.Warn("idempotency lookup failed, running handler", "error", err, "key", key)
		}
		if raw != nil {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				slog.Info("Idempotency hit, returning cached response", "key", key)
				c.Set("X-Idempotency-Hit", "true")
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(cached.Status).Send(cached.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= 500 {
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		data, _ := json.Marshal(cachedResponse{Status: status, Body: body})
		if err := store.Set(c.UserContext(), storeKey, data); err != nil {
			slog.Error("Failed to save Idempotency Key", "error", err, "key", key)
		}
		return nil
	}
}
