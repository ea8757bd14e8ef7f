package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/delloop-lab/accreditor-sub000/internal/config"
	"github.com/delloop-lab/accreditor-sub000/internal/database"
	"github.com/delloop-lab/accreditor-sub000/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Multipart overhead on top of the largest accepted upload.
const bodyLimitMargin = 1 << 20

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.DebugLogging() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// Presence falls back to in-process throttling without Redis.
	if err := database.ConnectRedis(cfg.RedisURL); err != nil {
		slog.Warn("redis unavailable, presence throttling is per process", "error", err)
	}
	defer database.CloseRedis()

	// 3. Setup Fiber
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.ImportMaxBytes()) + bodyLimitMargin,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, database.DB, database.Redis); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 4. Start Server
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
