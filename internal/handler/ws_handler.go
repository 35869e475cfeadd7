package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/live-api/internal/middleware"
	"github.com/yourusername/live-api/internal/service"
	"github.com/yourusername/live-api/internal/service/liveroom"
	"github.com/yourusername/live-api/internal/websocket"
	"github.com/yourusername/live-api/pkg/auth"
)

const wsCommandTimeout = 5 * time.Second

// WSHandler обрабатывает WebSocket соединения живых сессий
type WSHandler struct {
	wsHub       *websocket.Hub
	wsManager   *websocket.Manager
	liveService *service.LiveService
	jwtService  *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	liveService *service.LiveService,
	jwtService *auth.JWTService,
	allowedOrigins []string,
) *WSHandler {
	handler := &WSHandler{
		wsHub:       wsHub,
		wsManager:   wsManager,
		liveService: liveService,
		jwtService:  jwtService,
	}

	upgrader.CheckOrigin = makeOriginChecker(allowedOrigins)

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	// Отключение ведущего запускает сторожевой отсчет авто-завершения
	wsHub.SetDisconnectHandler(func(client *websocket.Client) {
		if client.Role == websocket.RoleHost && client.RoomCode() != "" {
			liveService.SetHostPresence(client.RoomCode(), false)
		}
	})

	return handler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	EnableCompression: true,
}

func makeOriginChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент (мобильное приложение, curl),
		// такие подключения разрешаем
		if origin == "" {
			return true
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
		return false
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// Аутентификация по короткоживущему тикету (?ticket=...), не по токену.
	// Сам тикет не логируем.
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ParseWSTicket(ticket)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired ticket - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}

	role := websocket.RolePlayer
	if claims.Role == middleware.RoleTeacher {
		role = websocket.RoleHost
	}

	client := websocket.NewClient(h.wsHub, conn, fmt.Sprintf("%d", claims.UserID), role, claims.ClassID)
	log.Printf("WebSocket: Connection upgraded for UserID=%d role=%s", claims.UserID, role)

	client.StartPumps(h.wsManager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики для типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	// Ведущий привязывается к комнате своей сессии
	h.wsManager.RegisterHandler(websocket.ROOM_HOST, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:host event")
			return fmt.Errorf("failed to parse room:host event: %w", err)
		}

		if client.Role != websocket.RoleHost {
			h.wsManager.SendErrorToClient(client, "not_host", "Only the session host can claim a room")
			return nil
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		state, err := h.liveService.Snapshot(ctx, event.Code)
		if err != nil {
			h.sendRoomError(client, event.Code, err)
			return nil
		}

		// Роли teacher недостаточно: комнату ведет только записанный в
		// сессии ведущий, иначе чужой сокет глушит сторожа авто-завершения
		if state.HostID != userID {
			h.sendRoomError(client, event.Code, liveroom.ErrNotHost)
			return nil
		}

		h.wsHub.JoinRoom(client, state.Code)
		h.liveService.SetHostPresence(state.Code, true)
		h.wsManager.SendEventToClient(client, websocket.ROOM_STATE_SNAPSHOT, state)
		return nil
	})

	// Ученик входит в комнату по коду
	h.wsManager.RegisterHandler(websocket.ROOM_JOIN, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code        string `json:"code"`
			DisplayName string `json:"display_name"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:join event")
			return fmt.Errorf("failed to parse room:join event: %w", err)
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		code := liveroom.NormalizeCode(event.Code)
		roster, err := h.liveService.JoinRoom(ctx, code, userID, client.ClassID, event.DisplayName)
		if err != nil {
			h.sendRoomError(client, code, err)
			return nil
		}

		// Подписка на события комнаты до подтверждения, чтобы клиент
		// не пропустил рассылку, произошедшую сразу после входа
		h.wsHub.JoinRoom(client, code)
		h.wsManager.SendEventToClient(client, websocket.ROOM_JOINED, map[string]interface{}{
			"code":   code,
			"roster": roster,
		})
		return nil
	})

	// Ведущий стартует игру
	h.wsManager.RegisterHandler(websocket.ROOM_START, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:start event")
			return fmt.Errorf("failed to parse room:start event: %w", err)
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		if err := h.liveService.StartRoom(ctx, event.Code, userID); err != nil {
			h.sendRoomError(client, event.Code, err)
		}
		return nil
	})

	// Событие ответа участника. Ошибки обработки логируются сервисом и
	// клиенту не возвращаются: поток ответов fire-and-forget.
	h.wsManager.RegisterHandler(websocket.ROOM_ANSWER, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code        string `json:"code"`
			Correct     bool   `json:"correct"`
			DeltaTimeMs int64  `json:"delta_time_ms"`
			ScoreDelta  *int   `json:"score_delta"`
			Seq         uint64 `json:"seq"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:answer event")
			return fmt.Errorf("failed to parse room:answer event: %w", err)
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		if err := h.liveService.RecordAnswer(ctx, event.Code, liveroom.AnswerEvent{
			UserID:      userID,
			Correct:     event.Correct,
			DeltaTimeMs: event.DeltaTimeMs,
			ScoreDelta:  event.ScoreDelta,
			Seq:         event.Seq,
		}); err != nil {
			log.Printf("[WSHandler] Ошибка обработки room:answer от user=%d в комнате %s: %v", userID, event.Code, err)
		}
		return nil
	})

	// Участник доиграл
	h.wsManager.RegisterHandler(websocket.ROOM_FINISH, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code        string `json:"code"`
			TotalTimeMs *int64 `json:"total_time_ms"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:finish event")
			return fmt.Errorf("failed to parse room:finish event: %w", err)
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		if err := h.liveService.RecordFinish(ctx, event.Code, liveroom.FinishEvent{
			UserID:      userID,
			TotalTimeMs: event.TotalTimeMs,
		}); err != nil {
			log.Printf("[WSHandler] Ошибка обработки room:finish от user=%d в комнате %s: %v", userID, event.Code, err)
		}
		return nil
	})

	// Ведущий завершает сессию
	h.wsManager.RegisterHandler(websocket.ROOM_END, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:end event")
			return fmt.Errorf("failed to parse room:end event: %w", err)
		}

		userID, err := h.parseUserID(client)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		if _, err := h.liveService.EndRoom(ctx, event.Code, userID, false); err != nil {
			h.sendRoomError(client, event.Code, err)
		}
		return nil
	})

	// Запрос снимка состояния (resync после reconnect)
	h.wsManager.RegisterHandler(websocket.ROOM_STATE, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse room:state event")
			return fmt.Errorf("failed to parse room:state event: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
		defer cancel()

		state, err := h.liveService.Snapshot(ctx, event.Code)
		if err != nil {
			h.sendRoomError(client, event.Code, err)
			return nil
		}

		h.wsManager.SendEventToClient(client, websocket.ROOM_STATE_SNAPSHOT, state)
		return nil
	})

	// Проверка соединения
	h.wsManager.RegisterHandler(websocket.USER_HEARTBEAT, func(data json.RawMessage, client *websocket.Client) error {
		h.wsManager.SendEventToClient(client, websocket.SERVER_HEARTBEAT, map[string]interface{}{
			"timestamp": time.Now().UnixMilli(),
		})
		return nil
	})
}

// sendRoomError транслирует ошибку движка комнат в server:error с машинным кодом
func (h *WSHandler) sendRoomError(client *websocket.Client, code string, err error) {
	errorCode := "internal_error"
	switch {
	case errors.Is(err, liveroom.ErrRoomNotFound):
		errorCode = "room_not_found"
	case errors.Is(err, liveroom.ErrRoomNotJoinable):
		errorCode = "room_not_joinable"
	case errors.Is(err, liveroom.ErrClassNotEligible):
		errorCode = "class_not_eligible"
	case errors.Is(err, liveroom.ErrInvalidTransition):
		errorCode = "invalid_transition"
	case errors.Is(err, liveroom.ErrNotHost):
		errorCode = "not_host"
	case errors.Is(err, liveroom.ErrEmptyRoom):
		errorCode = "empty_room"
	case errors.Is(err, liveroom.ErrUnknownParticipant):
		errorCode = "unknown_participant"
	case errors.Is(err, liveroom.ErrRoomClosed):
		errorCode = "room_closed"
	default:
		log.Printf("[WSHandler] Внутренняя ошибка для комнаты %s: %v", code, err)
	}

	h.wsManager.SendErrorToClient(client, errorCode, err.Error())
}

// parseUserID извлекает и парсит UserID из клиента
func (h *WSHandler) parseUserID(client *websocket.Client) (uint, error) {
	userIDUint64, err := strconv.ParseUint(client.UserID, 10, 32)
	if err != nil {
		log.Printf("[WSHandler] CRITICAL: Ошибка конвертации UserID '%s' в uint: %v", client.UserID, err)
		h.wsManager.SendErrorToClient(client, "internal_error", "Invalid user ID format")
		return 0, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return uint(userIDUint64), nil
}
