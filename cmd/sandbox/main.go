package main

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/handlers"
	"github.com/example/quickcommerce/internal/routes"
	"github.com/example/quickcommerce/internal/services"
)

const (
	demoEmail    = "demo@quickcommerce.local"
	demoPassword = "demo12345"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store := handlers.NewStore()
	store.SeedCatalog()
	if _, err := store.AddUser("Demo Shopper", demoEmail, "9876543210", demoPassword); err != nil {
		log.Error("seeding demo user failed", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:      "QuickCommerce Sandbox",
		ErrorHandler: routes.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)
	routes.Register(app, store, cfg, telegram, log)

	log.Info("Starting sandbox backend", "port", cfg.SandboxPort, "demoUser", demoEmail)
	if err := app.Listen(":" + cfg.SandboxPort); err != nil {
		log.Error("fiber.Listen error", "error", err)
		os.Exit(1)
	}
}
