package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/xefootball/backend/internal/api"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/database"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/matchmaking"
	"github.com/xefootball/backend/internal/migrations"
	"github.com/xefootball/backend/internal/notify"
	"github.com/xefootball/backend/internal/redis"
	"github.com/xefootball/backend/internal/session"
	"github.com/xefootball/backend/internal/workers"
	"github.com/xefootball/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Initialize chat notification client (if configured)
	if notifyClient := notify.NewClient(cfg, rdb); notifyClient != nil {
		notify.SetDefault(notifyClient)
		log.Printf("[NOTIFY] Chat client initialized (base=%s)", cfg.ChatAPIBaseURL)
	} else {
		log.Printf("[NOTIFY] Chat transport not configured (CHAT_API_BASE_URL/CHAT_BOT_TOKEN missing)")
	}

	// Core services
	sessions := session.NewStore(rdb, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	matches := match.NewService(db, rdb, cfg, sessions)
	queue := matchmaking.NewService(db, cfg)

	// Reload queue entries left over from the previous process
	if err := queue.Rehydrate(context.Background()); err != nil {
		log.Printf("[QUEUE] Rehydration failed: %v", err)
	}

	// WebSocket hub and match event fanout
	hub := ws.NewHub()
	go hub.Run()
	ws.StartEventSubscriber(context.Background(), rdb, hub)

	// Background sweeps (overdue matches, stale queue entries)
	sched, err := workers.StartScheduler(cfg, matches, queue)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Shutdown()

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, db, cfg, api.Services{
		Queue:    queue,
		Matches:  matches,
		Sessions: sessions,
		Hub:      hub,
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting XeFootball server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
