package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizforge/quizforge-backend/internal/handlers"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	QuizHandler    *handlers.QuizHandler
	HistoryHandler *handlers.HistoryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Auth
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Quiz flow
	router.POST("/get_subtopics", cfg.QuizHandler.GetSubtopics)
	router.POST("/generate_quiz", cfg.QuizHandler.GenerateQuiz)
	router.POST("/evaluate_quiz", cfg.QuizHandler.EvaluateQuiz)

	// History
	router.GET("/get_history", cfg.HistoryHandler.GetHistory)
	router.POST("/clear_history", cfg.HistoryHandler.ClearHistory)
	router.POST("/delete_quiz", cfg.HistoryHandler.DeleteQuiz)
	router.POST("/cleanup_unevaluated", cfg.HistoryHandler.CleanupUnevaluated)

	return router
}
