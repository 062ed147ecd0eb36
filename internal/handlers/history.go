package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/services"
)

type HistoryHandler struct {
	log        *logger.Logger
	historySvc services.HistoryService
}

func NewHistoryHandler(log *logger.Logger, historySvc services.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		log:        log.With("handler", "HistoryHandler"),
		historySvc: historySvc,
	}
}

// GET /get_history?username=
func (hh *HistoryHandler) GetHistory(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username not provided"})
		return
	}

	records := hh.historySvc.List(c.Request.Context(), username)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": records,
		"count":   len(records),
	})
}

// POST /clear_history
func (hh *HistoryHandler) ClearHistory(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username not provided"})
		return
	}

	deleted := hh.historySvc.ClearAll(c.Request.Context(), req.Username)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("Cleared %d history records", deleted),
		"deleted_count": deleted,
	})
}

// POST /delete_quiz
func (hh *HistoryHandler) DeleteQuiz(c *gin.Context) {
	var req struct {
		Username  string `json:"username"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Timestamp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and timestamp are required"})
		return
	}

	deleted := hh.historySvc.DeleteOne(c.Request.Context(), req.Username, req.Timestamp)
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Quiz not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Quiz deleted successfully",
		"deleted_count": deleted,
	})
}

// POST /cleanup_unevaluated
func (hh *HistoryHandler) CleanupUnevaluated(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username not provided"})
		return
	}

	deleted := hh.historySvc.CleanupUnevaluated(c.Request.Context(), req.Username)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("Removed %d unevaluated quiz records", deleted),
		"deleted_count": deleted,
	})
}
