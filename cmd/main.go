package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"exam-betting/internal/auth"
	"exam-betting/internal/config"
	"exam-betting/internal/database"
	"exam-betting/internal/handlers"
	"exam-betting/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	ledgerService := services.NewLedgerService(db)
	authService := services.NewAuthService(db, ledgerService, cfg.App.InitialBalance)
	userService := services.NewUserService(db)
	playerService := services.NewPlayerService(db)
	betService := services.NewBetService(db, ledgerService, cfg.App.MinStake)
	settlementService := services.NewSettlementService(db, ledgerService)
	historyService := services.NewHistoryService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	betHandler := handlers.NewBetHandler(betService, historyService)
	adminHandler := handlers.NewAdminHandler(userService, playerService, settlementService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/login", authHandler.Login)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/users/me", authHandler.GetMe)

		api.GET("/players", playerHandler.GetActivePlayers)

		api.POST("/bets/single", betHandler.PlaceSingleBets)
		api.POST("/bets/parlay", betHandler.PlaceParlayBet)
		api.GET("/bets/history", betHandler.GetHistory)
		api.GET("/bets/:id", betHandler.GetBet)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.GET("/players", adminHandler.GetAllPlayers)
		admin.POST("/players", adminHandler.RegisterPlayer)
		admin.PUT("/players/:id/odds", adminHandler.UpdateOdds)
		admin.POST("/players/:id/settle", adminHandler.SettlePlayer)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
