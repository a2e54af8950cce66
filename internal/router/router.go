package router

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/onlyfriends/server/internal/auth"
	"github.com/onlyfriends/server/internal/handlers"
	"github.com/onlyfriends/server/internal/middleware"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
	"github.com/onlyfriends/server/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB) {
	// AutoMigrate PostgreSQL models
	err := db.Postgres.AutoMigrate(
		&models.Account{},
		&models.Profile{},
		&models.Connection{},
		&models.InviteCode{},
		&models.RefreshSession{},
		&models.Message{},
		&models.Notification{},
		&models.PostView{},
		&models.ContactHash{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	mongoDB := db.Mongo.Database("onlyfriends")
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	connectionRepo := repositories.NewPostgresConnectionRepository(db.Postgres)
	inviteRepo := repositories.NewPostgresInviteRepository(db.Postgres)
	refreshRepo := repositories.NewPostgresRefreshRepository(db.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	messageRepo := repositories.NewPostgresMessageRepository(db.Postgres)
	contactRepo := repositories.NewPostgresContactRepository(db.Postgres)
	postViewRepo := repositories.NewPostgresPostViewRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	storyRepo := repositories.NewMongoStoryRepository(mongoDB)

	// --- Auth services ---
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	otpProvider := auth.NewRedisOtpProvider(db.Redis, &auth.LogSMSSender{}, cfg.OTPSalt, cfg.OTPDevMode)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authGroup.Use(middleware.RateLimit(db.Redis, 30, time.Minute))
	authHandler := handlers.NewAuthHandler(userRepo, refreshRepo, inviteRepo, notificationRepo, otpProvider, jwtService)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// Invite validation is public so the signup screen can check a code
	// before an account exists.
	inviteHandler := handlers.NewInviteHandler(inviteRepo, userRepo)
	inviteHandler.RegisterPublicInviteRoutes(authGroup)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(jwtService))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, connectionRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Connection routes
	connectionHandler := handlers.NewConnectionHandler(connectionRepo, userRepo, notificationRepo)
	connectionHandler.RegisterConnectionRoutes(api)
	log.Println("Connection routes configured.")

	// Invite routes
	inviteHandler.RegisterInviteRoutes(api)
	log.Println("Invite routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, postViewRepo, userRepo, connectionRepo)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Story routes
	storyHandler := handlers.NewStoryHandler(storyRepo, userRepo, connectionRepo)
	storyHandler.RegisterStoryRoutes(api)
	log.Println("Story routes configured.")

	// Message routes
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, connectionRepo, notificationRepo)
	messageHandler.RegisterMessageRoutes(api)
	log.Println("Message routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Contact matching routes
	contactHandler := handlers.NewContactHandler(contactRepo, userRepo, connectionRepo)
	contactHandler.RegisterContactRoutes(api)
	log.Println("Contact routes configured.")

	log.Println("All routes configured.")
}
