package handlers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/services"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type QuizHandler struct {
	log        *logger.Logger
	generator  services.GeneratorService
	evaluator  services.EvaluatorService
	historySvc services.HistoryService
}

func NewQuizHandler(log *logger.Logger, generator services.GeneratorService, evaluator services.EvaluatorService, historySvc services.HistoryService) *QuizHandler {
	return &QuizHandler{
		log:        log.With("handler", "QuizHandler"),
		generator:  generator,
		evaluator:  evaluator,
		historySvc: historySvc,
	}
}

// POST /get_subtopics
func (qh *QuizHandler) GetSubtopics(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic not provided"})
		return
	}

	subtopics := qh.generator.GenerateSubtopics(c.Request.Context(), req.Topic)
	c.JSON(http.StatusOK, gin.H{
		"subtopics": subtopics,
		"count":     len(subtopics),
		"message":   fmt.Sprintf("Found %d subtopics. Select the ones you want to include in your quiz.", len(subtopics)),
	})
}

// POST /generate_quiz
func (qh *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req struct {
		Topic     string   `json:"topic"`
		Subtopics []string `json:"subtopics"`
		Num       int      `json:"num"`
		Username  string   `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid JSON payload"})
		return
	}
	if req.Topic == "" || len(req.Subtopics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic and at least one subtopic are required"})
		return
	}
	if req.Num <= 0 {
		req.Num = 5
	}
	if req.Username == "" {
		req.Username = "Guest"
	}

	// Generation is always transient; nothing reaches storage here.
	quiz, err := qh.generator.GenerateQuiz(c.Request.Context(), req.Topic, req.Subtopics, req.Num, req.Username)
	if err != nil {
		qh.log.Error("Quiz generation failed", "topic", req.Topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate quiz"})
		return
	}
	if quiz == nil {
		quiz = []types.Question{}
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

// POST /evaluate_quiz
func (qh *QuizHandler) EvaluateQuiz(c *gin.Context) {
	var req struct {
		Username        string           `json:"username"`
		Topic           string           `json:"topic"`
		Subtopics       []string         `json:"subtopics"`
		Answers         []string         `json:"answers"`
		Questions       []types.Question `json:"questions"`
		TimeTaken       float64          `json:"time_taken"`
		TimePerQuestion []float64        `json:"time_per_question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid JSON payload"})
		return
	}
	if req.Username == "" || req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	result := qh.evaluator.Evaluate(c.Request.Context(),
		req.Username, req.Topic, req.Subtopics, req.Answers, req.Questions)

	averageTime := 0.0
	if len(req.Questions) > 0 {
		averageTime = round2(req.TimeTaken / float64(len(req.Questions)))
	}

	// Only the evaluated record is ever persisted; the gateway re-checks the
	// score/answers invariant on its side.
	if result.History != nil {
		result.History.TimeTaken = req.TimeTaken
		result.History.TimePerQuestion = req.TimePerQuestion
		result.History.AverageTimePerQuestion = averageTime
		qh.historySvc.SaveEvaluated(c.Request.Context(), result.History)
	}

	c.JSON(http.StatusOK, gin.H{
		"score":                     result.Score,
		"total":                     result.Total,
		"explanations":              result.Explanations,
		"time_taken":                req.TimeTaken,
		"average_time_per_question": averageTime,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
