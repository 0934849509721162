package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/kv"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/security"
)

type fakeSessions struct {
	accounts map[string]*domain.Account
	err      error
}

func (f *fakeSessions) CurrentAccount(_ context.Context, sessionID string) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[sessionID], nil
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func protectedApp(sessions SessionResolver) *fiber.App {
	app := fiber.New()
	app.Get("/me", Protected(sessions), func(c *fiber.Ctx) error {
		return c.SendString(AccountID(c) + "|" + SessionID(c))
	})
	return app
}

func TestProtected(t *testing.T) {
	token, sessionID, err := security.GenerateSessionToken()
	require.NoError(t, err)
	sessions := &fakeSessions{accounts: map[string]*domain.Account{sessionID: {ID: "acct-1"}}}
	app := protectedApp(sessions)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"unknown token", "Bearer mx_sess_nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				assert.Equal(t, "acct-1|"+sessionID, body(t, resp))
			}
		})
	}
}

func TestProtectedStoreDown(t *testing.T) {
	app := protectedApp(&fakeSessions{err: domain.NewPersistenceError("kv get", errors.New("timeout"))})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer mx_sess_abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store := kv.NewMemoryStore()
	calls := 0
	app := fiber.New()
	app.Post("/orders", func(c *fiber.Ctx) error {
		c.Locals(LocalAccountID, c.Get("X-Account"))
		return c.Next()
	}, Idempotency(store), func(c *fiber.Ctx) error {
		calls++
		return c.Status(http.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	send := func(account, key string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set("X-Account", account)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	first := send("a", "k1")
	assert.Equal(t, http.StatusCreated, first.StatusCode)
	assert.JSONEq(t, `{"call":1}`, body(t, first))

	replay := send("a", "k1")
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.Equal(t, "true", replay.Header.Get("X-Idempotency-Hit"))
	assert.JSONEq(t, `{"call":1}`, body(t, replay))

	other := send("b", "k1")
	assert.JSONEq(t, `{"call":2}`, body(t, other), "keys are scoped per account")

	noKey := send("a", "")
	assert.JSONEq(t, `{"call":3}`, body(t, noKey))
	assert.Equal(t, 3, calls)
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := kv.NewMemoryStore()
	calls := 0
	app := fiber.New()
	app.Post("/topups", Idempotency(store), func(c *fiber.Ctx) error {
		calls++
		if calls == 1 {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "down"})
		}
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"ok": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/topups", nil)
		req.Header.Set("Idempotency-Key", "k")
		_, err := app.Test(req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get(HeaderRequestID))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "<script>", resp.Header.Get(HeaderRequestID))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			assert.Equal(t, "1", resp.Header.Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAdminKey(t *testing.T) {
	status := func(key, presented string) int {
		app := fiber.New()
		app.Post("/admin", AdminKey(key), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if presented != "" {
			req.Header.Set(HeaderAdminKey, presented)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("s3cret", "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, status("s3cret", "s3cre"))
	assert.Equal(t, http.StatusUnauthorized, status("s3cret", ""))
	assert.Equal(t, http.StatusForbidden, status("", ""), "no configured key closes the route")
	assert.Equal(t, http.StatusForbidden, status("", "anything"))
}
