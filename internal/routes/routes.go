package routes

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/handlers"
	"github.com/example/quickcommerce/internal/middleware"
)

// Register wires up all HTTP routes of the sandbox backend.
func Register(app *fiber.App, store *handlers.Store, cfg *config.Config, notifier handlers.Notifier, logger *slog.Logger) {
	authHandler := handlers.NewAuthHandler(store, cfg, logger)
	catalogHandler := handlers.NewCatalogHandler(store)
	productHandler := handlers.NewProductHandler(store)
	cartHandler := handlers.NewCartHandler(store)
	orderHandler := handlers.NewOrderHandler(store, cfg, notifier, logger)
	paymentHandler := handlers.NewPaymentHandler(store, cfg, orderHandler, logger)
	profileHandler := handlers.NewProfileHandler(store)

	api := app.Group("/api")
	api.Get("/ping", handlers.Ping)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Catalog routes
	api.Get("/categories", catalogHandler.ListCategories)
	productHandler.RegisterProductRoutes(api.Group("/products"))

	// Stand-in gateway, called from the shopper's browser
	sandbox := api.Group("/sandbox", cors.New())
	sandbox.Post("/pay", paymentHandler.SandboxPay)
	app.Get("/sandbox/checkout.js", paymentHandler.WidgetScript)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/user/profile", profileHandler.GetProfile)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Delete("/cart", cartHandler.ClearCart)
	protected.Post("/cart/items", cartHandler.AddItem)
	protected.Put("/cart/items/:id", cartHandler.UpdateItem)
	protected.Delete("/cart/items/:id", cartHandler.RemoveItem)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders/my", orderHandler.ListMyOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Delete("/orders/:id", orderHandler.CancelOrder)

	protected.Post("/payments/verify", paymentHandler.VerifyPayment)

	protected.Get("/location/addresses", profileHandler.ListAddresses)
	protected.Post("/location/addresses", profileHandler.CreateAddress)
	protected.Delete("/location/addresses/:id", profileHandler.DeleteAddress)
	protected.Get("/location/check-deliverability", profileHandler.CheckDeliverability)
}

// ErrorHandler renders errors as the {success, message} body clients parse.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
}
