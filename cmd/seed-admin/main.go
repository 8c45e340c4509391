package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/xefootball/backend/internal/admin"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/database"
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

	// Seed admin account
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
		log.Printf("Using default admin username: %s", username)
	}

	secret := os.Getenv("ADMIN_SECRET")
	if secret == "" {
		secret = "change-me-in-production"
		log.Printf("WARNING: Using default admin secret. Set ADMIN_SECRET env var in production!")
	}

	chatID, _ := strconv.ParseInt(os.Getenv("ADMIN_CHAT_ID"), 10, 64)

	if err := admin.CreateAdminAccount(db, username, secret, chatID); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("✓ Admin account created/updated successfully")
	log.Printf("  Username: %s", username)
	log.Printf("  Chat ID: %d", chatID)
	log.Println("\nYou can now login at /api/v1/admin/login with:")
	log.Printf("  Username: %s", username)
	log.Printf("  Secret: %s", secret)
}
