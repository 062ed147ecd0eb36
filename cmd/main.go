package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/quizforge/quizforge-backend/internal/clients/groq"
	"github.com/quizforge/quizforge-backend/internal/db"
	"github.com/quizforge/quizforge-backend/internal/handlers"
	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/server"
	"github.com/quizforge/quizforge-backend/internal/services"
	"github.com/quizforge/quizforge-backend/internal/utils"
)

func main() {
	// Env
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using process environment")
	}

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	quizAttemptRepo := repos.NewQuizAttemptRepo(thePG, log)

	// Groq client
	groqClient, err := groq.NewClient(log)
	if err != nil {
		log.Error("Could not init GroqClient", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services...")
	authService := services.NewAuthService(log, userRepo)
	generatorService := services.NewGeneratorService(log, groqClient)
	evaluatorService := services.NewEvaluatorService(log, groqClient)
	historyService := services.NewHistoryService(log, quizAttemptRepo)

	// Handlers
	log.Info("Setting up handlers...")
	authHandler := handlers.NewAuthHandler(log, authService)
	quizHandler := handlers.NewQuizHandler(log, generatorService, evaluatorService, historyService)
	historyHandler := handlers.NewHistoryHandler(log, historyService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		QuizHandler:    quizHandler,
		HistoryHandler: historyHandler,
	})

	port := utils.GetEnv("PORT", "5000", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
