package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/core/cart"
	"github.com/ibrahimkeyboad/maxen/internal/core/order"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
	"github.com/ibrahimkeyboad/maxen/internal/core/session"
	"github.com/ibrahimkeyboad/maxen/internal/core/wallet"
)

// Services are the domain components the API exposes.
type Services struct {
	Catalog  ports.Catalog
	Sessions *session.Manager
	Carts    *cart.Ledger
	Wallet   *wallet.Ledger
	Orders   *order.Processor
	// KV backs idempotency keys.
	KV          ports.KeyValueStore
	RateLimiter *middleware.RateLimiter
	// AdminKey opens /v1/admin; empty keeps it closed.
	AdminKey string
}

// NewApp builds the fiber app with every /v1 route registered.
func NewApp(s Services) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(middleware.RequestID())
	app.Use(cors.New())
	if s.RateLimiter != nil {
		app.Use(s.RateLimiter.Handler())
	}

	accountHandler := &AccountHandler{Sessions: s.Sessions}
	catalogHandler := &CatalogHandler{Catalog: s.Catalog}
	cartHandler := &CartHandler{Carts: s.Carts}
	walletHandler := &WalletHandler{Wallet: s.Wallet}
	orderHandler := &OrderHandler{Orders: s.Orders, Carts: s.Carts}

	api := app.Group("/v1")

	// Public
	api.Post("/accounts", accountHandler.Register)
	api.Post("/sessions", accountHandler.Login)
	api.Post("/sessions/identity", accountHandler.LoginIdentity)
	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:id", catalogHandler.GetProduct)
	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/wallet/topup-packages", walletHandler.Packages)

	// Admin
	admin := api.Group("/admin", middleware.AdminKey(s.AdminKey))
	admin.Post("/orders/:id/fulfill", orderHandler.Fulfill)

	// Protected
	private := api.Group("", middleware.Protected(s.Sessions))
	private.Delete("/sessions", accountHandler.Logout)
	private.Get("/me", accountHandler.Me)

	private.Get("/cart", cartHandler.Get)
	private.Post("/cart/items", cartHandler.AddItem)
	private.Put("/cart/items/:productId", cartHandler.SetQuantity)
	private.Delete("/cart/items/:productId", cartHandler.RemoveItem)
	private.Delete("/cart", cartHandler.Clear)

	private.Get("/wallet", walletHandler.Summary)
	private.Post("/wallet/topups", middleware.Idempotency(s.KV), walletHandler.TopUp)
	private.Get("/wallet/transactions", walletHandler.History)

	private.Post("/orders", middleware.Idempotency(s.KV), orderHandler.Checkout)
	private.Get("/orders", orderHandler.List)
	private.Get("/orders/:id", orderHandler.Get)
	private.Post("/orders/:id/cancel", orderHandler.Cancel)

	return app
}
