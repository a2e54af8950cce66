package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/router"
	"github.com/onlyfriends/server/pkg/config"
	"github.com/onlyfriends/server/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Create Echo instance
	e := echo.New()

	// Validator
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, cfg, db)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
