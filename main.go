package main

import (
	"context"
	"log"
	"net/http"

	"csgo-liquidity/internal/api"
	"csgo-liquidity/internal/config"
	"csgo-liquidity/internal/database"
	"csgo-liquidity/internal/liquidity"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	store := liquidity.NewStore(liquidity.NewGormSource(db))

	// Warm the snapshot so the API has data right after boot. Not fatal on
	// failure: handlers serve the empty snapshot until a refresh succeeds.
	go func() {
		stats, err := store.Refresh(context.Background())
		if err != nil {
			log.Printf("Initial refresh failed: %v", err)
			return
		}
		log.Printf("Initial snapshot ready: %d items scored in %v", stats.ScoredRows, stats.Duration)
	}()

	// Initialize Gin router
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Websocket refresh feed
	hub := api.NewHub()
	r.GET("/ws", hub.HandleWS)

	// API routes
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, db, store, hub)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
