package main

import (
	"log"
	"time"

	config "github.com/davidem/duochat/configs"
	"github.com/davidem/duochat/database"
	"github.com/davidem/duochat/handlers"
	"github.com/davidem/duochat/notifications"
	"github.com/davidem/duochat/routes"
	"github.com/davidem/duochat/services"
	"github.com/davidem/duochat/storage"
	"github.com/davidem/duochat/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// The storage backend is chosen once at process start; both backends
	// implement the same contracts so everything downstream is identical.
	var msgStore storage.Store
	var users storage.UserDirectory
	if config.Config("STORE_BACKEND") == "memory" {
		log.Println("💾 Using in-memory storage (development mode)")
		msgStore = storage.NewMemoryStore()
		users = storage.NewMemoryUserDirectory()
	} else {
		log.Println("🐘 Using Postgres storage")
		database.ConnectDB()
		database.Migrate()
		msgStore = storage.NewGormStore(database.DB)
		users = storage.NewGormUserDirectory(database.DB)
	}

	hub := websocket.NewHub()
	push := notifications.NewFCMService(config.Config("FCM_SERVER_KEY"), config.Config("FCM_ENDPOINT"))
	messages := services.NewMessageService(msgStore, hub, users, push)

	jwtSecret := config.Config("JWT_SECRET")
	authHandler := handlers.NewAuthHandler(users, jwtSecret)
	userHandler := handlers.NewUserHandler(users)
	messageHandler := handlers.NewMessageHandler(messages)
	wsHandler := handlers.NewWSHandler(messages, hub, jwtSecret)

	app := fiber.New(fiber.Config{
		AppName:       "DuoChat",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.AuthRoutes(app, authHandler)
	routes.UserRoutes(app, userHandler)
	routes.MessagingRoutes(app, messageHandler, wsHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
