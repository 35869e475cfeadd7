package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/live-api/internal/handler/dto"
	apperrors "github.com/yourusername/live-api/internal/pkg/errors"
	"github.com/yourusername/live-api/internal/service"
	"github.com/yourusername/live-api/internal/service/liveroom"
	"github.com/yourusername/live-api/pkg/auth"
)

// LiveHandler обрабатывает HTTP-запросы движка живых сессий
type LiveHandler struct {
	liveService *service.LiveService
	gateService *service.AssignmentGateService
	jwtService  *auth.JWTService
}

// NewLiveHandler создает новый обработчик живых сессий
func NewLiveHandler(
	liveService *service.LiveService,
	gateService *service.AssignmentGateService,
	jwtService *auth.JWTService,
) *LiveHandler {
	return &LiveHandler{
		liveService: liveService,
		gateService: gateService,
		jwtService:  jwtService,
	}
}

// CreateSession создает новую живую сессию с уникальным кодом комнаты
// POST /api/sessions
func (h *LiveHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostID := c.MustGet("user_id").(uint)

	session, err := h.liveService.CreateSession(hostID, req.GameID, req.AllowedClassIDs, service.SessionOptions{
		PenaltyPerWrongMs: req.PenaltyPerWrongMs,
		ScorePerCorrect:   req.ScorePerCorrect,
	})
	if err != nil {
		if errors.Is(err, liveroom.ErrExhaustedCodeSpace) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No room codes available, try again later", "error_type": "code_space_exhausted"})
			return
		}
		log.Printf("[LiveHandler] Ошибка создания сессии для host=%d: %v", hostID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewSessionResponse(session))
}

// GetSummary возвращает итог завершенной сессии
// GET /api/sessions/:id/summary
func (h *LiveHandler) GetSummary(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.liveService.GetSummary(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotEnded):
			c.JSON(http.StatusConflict, gin.H{"error": "Session has not ended yet", "error_type": "session_not_ended"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		default:
			log.Printf("[LiveHandler] Ошибка получения итога сессии %s: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session summary"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewSummaryResponse(session))
}

// ListSessions возвращает завершенные сессии учителя
// GET /api/sessions
func (h *LiveHandler) ListSessions(c *gin.Context) {
	hostID := c.MustGet("user_id").(uint)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	sessions, err := h.liveService.ListSessions(hostID, limit, offset)
	if err != nil {
		log.Printf("[LiveHandler] Ошибка получения списка сессий host=%d: %v", hostID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	responses := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		responses = append(responses, dto.NewSessionResponse(&sessions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": responses})
}

// DeleteSession удаляет завершенную сессию вместе с ее рейтингом
// DELETE /api/sessions/:id
func (h *LiveHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.liveService.DeleteSession(sessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionStillLive):
			c.JSON(http.StatusConflict, gin.H{"error": "Session is still live and cannot be deleted", "error_type": "session_still_live"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		default:
			log.Printf("[LiveHandler] Ошибка удаления сессии %s: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// CanAttempt проверяет допуск ученика к новой попытке по заданию
// GET /api/assignments/:id/can-attempt?game_id=N
func (h *LiveHandler) CanAttempt(c *gin.Context) {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	gameID, err := strconv.ParseUint(c.Query("game_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing game_id parameter"})
		return
	}

	studentID := c.MustGet("user_id").(uint)

	decision, err := h.gateService.CanAttempt(assignmentID, uint(gameID), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
			return
		}
		log.Printf("[LiveHandler] Ошибка гейта для assignment=%d student=%d: %v", assignmentID, studentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check attempt eligibility"})
		return
	}

	c.JSON(http.StatusOK, dto.NewGateDecisionResponse(decision))
}

// SubmitAttempt засчитывает результат ученика из завершенной сессии
// как попытку по заданию
// POST /api/sessions/:id/attempts
func (h *LiveHandler) SubmitAttempt(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		AssignmentID uint `json:"assignment_id" binding:"required"`
		GameID       uint `json:"game_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	studentID := c.MustGet("user_id").(uint)

	attempt, decision, err := h.gateService.SubmitLiveResult(sessionID, req.AssignmentID, req.GameID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptBlocked):
			c.JSON(http.StatusForbidden, gin.H{
				"error":      "Attempt blocked by assignment gate",
				"error_type": "attempt_blocked",
				"decision":   dto.NewGateDecisionResponse(decision),
			})
		case errors.Is(err, service.ErrSessionNotEnded):
			c.JSON(http.StatusConflict, gin.H{"error": "Session has not ended yet", "error_type": "session_not_ended"})
		case errors.Is(err, service.ErrNoStandingForStudent):
			c.JSON(http.StatusNotFound, gin.H{"error": "No standing for this student in the session"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session or assignment not found"})
		default:
			log.Printf("[LiveHandler] Ошибка зачета попытки session=%s student=%d: %v", sessionID, studentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit attempt"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptResponse(attempt))
}

// GetWSTicket выдает короткоживущий тикет для WebSocket-подключения
// POST /api/ws-ticket
func (h *LiveHandler) GetWSTicket(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	role := c.MustGet("role").(string)
	classID := c.MustGet("class_id").(int64)

	ticket, err := h.jwtService.GenerateWSTicket(userID, role, classID)
	if err != nil {
		log.Printf("[LiveHandler] Ошибка генерации WS-тикета для user=%d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate ticket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
