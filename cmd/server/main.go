package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/collab-canvas/backend/api/handlers"
	"github.com/collab-canvas/backend/internal/config"
	"github.com/collab-canvas/backend/internal/db"
	"github.com/collab-canvas/backend/internal/repository"
	"github.com/collab-canvas/backend/internal/room"
	"github.com/collab-canvas/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Activity log is optional diagnostics; the canvas runs without it
	var activityRepo *repository.ActivityRepository
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()
		activityRepo = repository.NewActivityRepository(database)
	}

	directory := room.NewDirectory()

	coordinator := ws.NewCoordinator(directory, ws.Options{
		DefaultRoom:    cfg.DefaultRoom,
		StrictProtocol: cfg.StrictProtocol,
		Activity:       activityRepo,
	})
	defer coordinator.Close()

	wsHandler := handlers.NewWebSocketHandler(ws.NewHandler(coordinator))
	roomHandler := handlers.NewRoomHandler(directory, activityRepo)

	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	wsHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		roomHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		coordinator.Close()
		os.Exit(0)
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
