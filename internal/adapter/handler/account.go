package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/security"
	"github.com/ibrahimkeyboad/maxen/internal/core/session"
)

type AccountHandler struct {
	Sessions *session.Manager
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

type identityRequest struct {
	IDToken string `json:"id_token"`
}

func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req session.Profile
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid account body", "error", err)
		return badRequest(c, "Invalid request body")
	}

	token, sessionID, err := security.GenerateSessionToken()
	if err != nil {
		return respondError(c, err)
	}
	acc, err := h.Sessions.CreateAccount(c.UserContext(), sessionID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse{Token: token, Account: acc})
}

func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req session.Credentials
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, sessionID, err := security.GenerateSessionToken()
	if err != nil {
		return respondError(c, err)
	}
	acc, err := h.Sessions.Authenticate(c.UserContext(), sessionID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessionResponse{Token: token, Account: acc})
}

func (h *AccountHandler) LoginIdentity(c *fiber.Ctx) error {
	var req identityRequest
	if err := c.BodyParser(&req); err != nil || req.IDToken == "" {
		return badRequest(c, "id_token is required")
	}

	token, sessionID, err := security.GenerateSessionToken()
	if err != nil {
		return respondError(c, err)
	}
	acc, err := h.Sessions.AuthenticateIdentity(c.UserContext(), sessionID, req.IDToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessionResponse{Token: token, Account: acc})
}

func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	if err := h.Sessions.EndSession(c.UserContext(), middleware.SessionID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AccountHandler) Me(c *fiber.Ctx) error {
	acc, err := h.Sessions.CurrentAccount(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	if acc == nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired or signed out"})
	}
	return c.JSON(acc)
}
